package chunker

import (
	"errors"
	"fmt"

	"clausecheck/internal/models"
)

// ErrInvalidConfiguration reports unusable chunking parameters. Fatal at
// startup; never retried.
var ErrInvalidConfiguration = errors.New("invalid chunking configuration")

type Config struct {
	// ChunkSize is the hard segment length in runes.
	ChunkSize int
	// Overlap is the number of trailing runes each segment shares with
	// its successor. Must be positive and smaller than ChunkSize.
	Overlap int
	// Lookahead is how far back from the hard cut the chunker searches
	// for a sentence or line boundary. Zero disables boundary snapping.
	Lookahead int
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfiguration, c.ChunkSize)
	}
	if c.Overlap <= 0 {
		return fmt.Errorf("%w: overlap %d must be positive", ErrInvalidConfiguration, c.Overlap)
	}
	if c.ChunkSize <= c.Overlap {
		return fmt.Errorf("%w: chunk size %d must exceed overlap %d", ErrInvalidConfiguration, c.ChunkSize, c.Overlap)
	}
	if c.Lookahead < 0 {
		return fmt.Errorf("%w: lookahead %d must not be negative", ErrInvalidConfiguration, c.Lookahead)
	}
	return nil
}

// Chunk splits normalized text into ordered overlapping segments.
// Every rune of the input is covered by at least one segment, each
// consecutive pair overlaps by exactly cfg.Overlap runes, and identical
// input with identical config always yields identical segments. A
// document shorter than ChunkSize yields exactly one segment. Segment
// DocID and SegmentID are assigned by the caller.
func Chunk(text string, cfg Config) ([]models.Segment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return []models.Segment{}, nil
	}

	segments := make([]models.Segment, 0, len(runes)/cfg.ChunkSize+1)
	start := 0
	for idx := 0; ; idx++ {
		end := start + cfg.ChunkSize
		if end >= len(runes) {
			segments = append(segments, models.Segment{
				Index: idx,
				Start: start,
				End:   len(runes),
				Text:  string(runes[start:]),
			})
			break
		}
		if cfg.Lookahead > 0 {
			// Prefer cutting at a sentence or line boundary, but never so
			// early that the next segment would stop making progress.
			lo := end - cfg.Lookahead
			if min := start + cfg.Overlap + 1; lo < min {
				lo = min
			}
			if b := lastBoundary(runes, lo, end); b > 0 {
				end = b
			}
		}
		segments = append(segments, models.Segment{
			Index: idx,
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		start = end - cfg.Overlap
	}
	return segments, nil
}

// lastBoundary returns the position just after the last sentence end or
// newline in runes[lo:hi], or 0 when the window holds none.
func lastBoundary(runes []rune, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	for i := hi - 1; i >= lo; i-- {
		r := runes[i]
		if r == '\n' {
			return i + 1
		}
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return 0
}
