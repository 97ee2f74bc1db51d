package webpage

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

// Extractor pulls visible text out of saved HTML pages. Block-level elements
// become paragraph breaks so downstream chunking sees natural boundaries.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.ExtractedSegment, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored html: %w", err)
	}
	defer reader.Close()

	root, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var builder strings.Builder
	collectText(root, &builder)

	text := normalizeWhitespace(builder.String())
	if text == "" {
		return nil, nil
	}
	return []domain.ExtractedSegment{{Text: text, ChunkType: domain.ChunkText}}, nil
}

var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "tr": {}, "br": {}, "pre": {}, "blockquote": {},
}

func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.ElementNode {
		if _, skip := skippedElements[n.Data]; skip {
			return
		}
	}
	if n.Type == html.TextNode {
		builder.WriteString(n.Data)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
	if n.Type == html.ElementNode {
		if _, block := blockElements[n.Data]; block {
			builder.WriteString("\n\n")
		}
	}
}

func normalizeWhitespace(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	kept := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		collapsed := strings.Join(strings.Fields(paragraph), " ")
		if collapsed != "" {
			kept = append(kept, collapsed)
		}
	}
	return strings.Join(kept, "\n\n")
}
