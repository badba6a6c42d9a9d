package clips

import (
	"context"
	"time"
)

// Clip is a segment that met the minimum-duration requirement and was
// physically extracted.
type Clip struct {
	Index int
	Start time.Duration
	End   time.Duration
	Path  string
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	return c.End - c.Start
}

// Trimmer performs a lossless time-range extraction from a source file:
// stream copy including audio, overwriting any existing destination.
type Trimmer interface {
	Trim(ctx context.Context, source string, start, end time.Duration, dest string) error
}
