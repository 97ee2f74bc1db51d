package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

// Router picks the extractor for a document by mime type.
type Router struct {
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
	webpage     ports.TextExtractor
	plaintext   ports.TextExtractor
}

func NewRouter(pdf, spreadsheet, webpage, plaintext ports.TextExtractor) *Router {
	return &Router{
		pdf:         pdf,
		spreadsheet: spreadsheet,
		webpage:     webpage,
		plaintext:   plaintext,
	}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) ([]domain.ExtractedSegment, error) {
	target, err := r.forMimeType(doc.MimeType)
	if err != nil {
		return nil, err
	}
	return target.Extract(ctx, doc)
}

func (r *Router) forMimeType(mimeType string) (ports.TextExtractor, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == "application/pdf":
		return r.pdf, nil
	case mt == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		mt == "application/vnd.ms-excel":
		return r.spreadsheet, nil
	case mt == "text/html", mt == "application/xhtml+xml":
		return r.webpage, nil
	case strings.HasPrefix(mt, "text/"), mt == "application/json", mt == "":
		return r.plaintext, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "select extractor",
			fmt.Errorf("unsupported mime type %q", mimeType))
	}
}
