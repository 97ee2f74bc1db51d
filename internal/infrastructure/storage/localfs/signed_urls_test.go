package localfs

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSignedURLRoundTrip(t *testing.T) {
	resolver, err := NewSignedURLResolver("http://localhost:8080", "test-secret", 10*time.Minute)
	if err != nil {
		t.Fatalf("NewSignedURLResolver: %v", err)
	}
	resolver.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	signed, err := resolver.URL("abc_diagram.png")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	if !strings.HasPrefix(parsed.Path, "/v1/assets/") {
		t.Fatalf("unexpected path %q", parsed.Path)
	}
	exp, err := strconv.ParseInt(parsed.Query().Get("exp"), 10, 64)
	if err != nil {
		t.Fatalf("parse exp: %v", err)
	}
	if exp != 1_700_000_600 {
		t.Fatalf("exp = %d, want 1700000600", exp)
	}
	if err := resolver.Verify("abc_diagram.png", exp, parsed.Query().Get("sig")); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSignedURLRejectsTampering(t *testing.T) {
	resolver, err := NewSignedURLResolver("http://localhost:8080", "test-secret", 10*time.Minute)
	if err != nil {
		t.Fatalf("NewSignedURLResolver: %v", err)
	}
	resolver.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	signed, _ := resolver.URL("abc_diagram.png")
	parsed, _ := url.Parse(signed)
	exp, _ := strconv.ParseInt(parsed.Query().Get("exp"), 10, 64)
	sig := parsed.Query().Get("sig")

	if err := resolver.Verify("other_key.png", exp, sig); err == nil {
		t.Fatal("expected signature mismatch for a different key")
	}
	if err := resolver.Verify("abc_diagram.png", exp+1, sig); err == nil {
		t.Fatal("expected signature mismatch for a shifted expiry")
	}

	resolver.now = func() time.Time { return time.Unix(1_800_000_000, 0) }
	if err := resolver.Verify("abc_diagram.png", exp, sig); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestSignedURLRequiresSecret(t *testing.T) {
	if _, err := NewSignedURLResolver("http://localhost", "  ", time.Minute); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
