package chunking

import "strings"

// Splitter cuts text into overlapping chunks of at most ChunkSize runes.
// When a chunk would end mid-sentence it backs up to the nearest paragraph
// or sentence boundary, as long as that keeps the chunk reasonably full.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// minChunkFill is the fraction of ChunkSize a chunk must retain after
// snapping back to a boundary.
const minChunkFill = 0.6

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.snapToBoundary(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// snapToBoundary moves end back to just after the last paragraph break, or
// failing that the last sentence end, within the tail of the chunk.
func (s *Splitter) snapToBoundary(runes []rune, start, end int) int {
	floor := start + int(float64(s.ChunkSize)*minChunkFill)
	if floor >= end {
		return end
	}

	window := string(runes[floor:end])
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return floor + len([]rune(window[:i+2]))
	}
	for _, mark := range []string{". ", ".\n", "! ", "? "} {
		if i := strings.LastIndex(window, mark); i >= 0 {
			return floor + len([]rune(window[:i+len(mark)]))
		}
	}
	return end
}
