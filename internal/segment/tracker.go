package segment

import (
	"time"

	"github.com/keagan/clipsieve/internal/config"
	"github.com/keagan/clipsieve/pkg/util"
	"github.com/rs/zerolog"
)

// ClosedSegment is a maximal run of acceptable samples, produced when the
// tracker closes. End is never before Start.
type ClosedSegment struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the segment length.
func (s ClosedSegment) Duration() time.Duration {
	return s.End - s.Start
}

// Transition reports what a single observed sample did to the tracker.
type Transition struct {
	Opened bool
	Closed *ClosedSegment
}

// Tracker is the segment-tracking state machine. It consumes sampled-frame
// verdicts in strict frame order and finds maximal acceptable runs,
// absorbing up to tolerance consecutive rejected samples before closing.
//
// The tracker owns its state exclusively and is not safe for concurrent use;
// verdicts must arrive serialized in increasing frame order.
type Tracker struct {
	logger    zerolog.Logger
	tolerance int
	fps       float64
	mode      config.BoundaryMode

	active    bool
	start     time.Duration
	invalid   int           // consecutive rejected samples absorbed so far
	lastValid time.Duration // timestamp of the most recent accepted sample
}

// New creates a tracker for one stream. fps is the rate used for close
// boundary arithmetic and must match the rate the caller derives timestamps
// with.
func New(logger zerolog.Logger, cfg config.SamplingConfig, fps float64) *Tracker {
	return &Tracker{
		logger:    logger.With().Str("component", "segment-tracker").Logger(),
		tolerance: cfg.Tolerance,
		fps:       fps,
		mode:      cfg.BoundaryMode,
	}
}

// Observe feeds one sampled frame's verdict through the state machine.
func (t *Tracker) Observe(frameIdx int, ts time.Duration, accepted bool) Transition {
	if accepted {
		t.invalid = 0
		t.lastValid = ts
		if !t.active {
			t.active = true
			t.start = ts
			t.logger.Info().
				Int("frame", frameIdx).
				Dur("start", ts).
				Msg("segment opened")
			return Transition{Opened: true}
		}
		return Transition{}
	}

	if !t.active {
		// Counting while idle has no observable effect; the counter is
		// reset the moment a segment opens.
		t.invalid++
		return Transition{}
	}

	if t.invalid+1 > t.tolerance {
		seg := ClosedSegment{Start: t.start, End: t.closeBoundary(frameIdx)}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		t.active = false
		t.invalid = 0
		t.logger.Info().
			Int("frame", frameIdx).
			Dur("start", seg.Start).
			Dur("end", seg.End).
			Msg("segment closed")
		return Transition{Closed: &seg}
	}

	t.invalid++
	return Transition{}
}

// closeBoundary rolls the close timestamp back past the tolerated rejected
// run so the emitted clip never includes it.
func (t *Tracker) closeBoundary(frameIdx int) time.Duration {
	if t.mode == config.BoundaryCompat {
		// Historical arithmetic: subtract the tolerated-sample count from
		// the raw frame index. The counter is in sampled units while the
		// index advances by the stride, so the boundary drifts when the
		// stride is above one.
		return util.FrameTimestamp(frameIdx-t.invalid, t.fps)
	}
	return t.lastValid
}

// Flush closes any in-progress segment at end of stream (or cancellation),
// using the total elapsed duration as the close boundary. The tracker ends
// up idle either way.
func (t *Tracker) Flush(total time.Duration) (ClosedSegment, bool) {
	if !t.active {
		return ClosedSegment{}, false
	}

	seg := ClosedSegment{Start: t.start, End: total}
	if seg.End < seg.Start {
		seg.End = seg.Start
	}
	t.active = false
	t.invalid = 0
	t.logger.Info().
		Dur("start", seg.Start).
		Dur("end", seg.End).
		Msg("segment closed at end of stream")
	return seg, true
}

// Active reports whether a segment is currently open.
func (t *Tracker) Active() bool {
	return t.active
}

// Reset re-arms the tracker for a new stream.
func (t *Tracker) Reset() {
	t.active = false
	t.start = 0
	t.invalid = 0
	t.lastValid = 0
}
