package pipeline

import (
	"time"

	"github.com/keagan/clipsieve/internal/clips"
	"github.com/keagan/clipsieve/internal/quality"
)

// Source yields decoded frames one at a time, in presentation order.
// Next returns io.EOF at clean end of stream.
type Source interface {
	Next() ([]byte, error)
	Close() error
}

// StreamInfo carries the geometry and timing the frame loop needs.
type StreamInfo struct {
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
}

// FrameEvent is emitted once per sampled frame, after classification.
type FrameEvent struct {
	Index     int
	Timestamp time.Duration
	Verdict   quality.Verdict
}

// Observer receives per-sample events. The pipeline assumes nothing about
// the sink; a nil observer is fine.
type Observer func(FrameEvent)

// Report summarizes one processing run.
type Report struct {
	RunID        string
	Source       string
	FramesRead   int
	Samples      int
	Accepted     int
	Rejected     int
	Clips        []clips.Clip
	Discarded    int
	TrimFailures int
	Cancelled    bool
	Elapsed      time.Duration
	AvgSpeed     float64 // samples per second
}
