package spreadsheet

import (
	"strings"
	"testing"
)

func TestRowTextPairsHeadersWithCells(t *testing.T) {
	got := rowText("Inventory", []string{"Host", "Role", "Rack"}, []string{"db-01", "primary", ""})
	want := "Inventory | Host: db-01 | Role: primary"
	if got != want {
		t.Fatalf("rowText() = %q, want %q", got, want)
	}
}

func TestRowTextSkipsEmptyRows(t *testing.T) {
	if got := rowText("Sheet1", []string{"A"}, []string{"", "  "}); got != "" {
		t.Fatalf("expected empty string for blank row, got %q", got)
	}
}

func TestRowTextHandlesMissingHeader(t *testing.T) {
	got := rowText("Sheet1", []string{"A"}, []string{"x", "orphan"})
	if !strings.Contains(got, "A: x") || !strings.Contains(got, "orphan") {
		t.Fatalf("unexpected row text %q", got)
	}
}

func TestSheetSummaryListsColumns(t *testing.T) {
	got := sheetSummary("Inventory", []string{"Host", "Role"}, 12)
	if !strings.Contains(got, "Inventory") || !strings.Contains(got, "12 data rows") || !strings.Contains(got, "Host, Role") {
		t.Fatalf("unexpected summary %q", got)
	}
}
