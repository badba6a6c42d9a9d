package segment

import (
	"testing"
	"time"

	"github.com/keagan/clipsieve/internal/config"
	"github.com/keagan/clipsieve/pkg/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFPS = 30.0

func newTracker(tolerance int, mode config.BoundaryMode) *Tracker {
	return New(zerolog.Nop(), config.SamplingConfig{
		Tolerance:    tolerance,
		BoundaryMode: mode,
	}, testFPS)
}

func ts(frame int) time.Duration {
	return util.FrameTimestamp(frame, testFPS)
}

// feed runs frames [from, to) through the tracker with a fixed verdict and
// returns any close produced.
func feed(t *testing.T, tr *Tracker, from, to int, accepted bool) *ClosedSegment {
	t.Helper()
	var closed *ClosedSegment
	for i := from; i < to; i++ {
		res := tr.Observe(i, ts(i), accepted)
		if res.Closed != nil {
			require.Nil(t, closed, "more than one close in run %d-%d", from, to)
			closed = res.Closed
		}
	}
	return closed
}

func TestOpenOnFirstAccept(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	res := tr.Observe(0, ts(0), true)

	assert.True(t, res.Opened)
	assert.True(t, tr.Active())
}

func TestRejectWhileIdleHasNoEffect(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	require.Nil(t, feed(t, tr, 0, 20, false))
	assert.False(t, tr.Active())

	// A long idle reject run must not poison the next segment's tolerance.
	res := tr.Observe(20, ts(20), true)
	require.True(t, res.Opened)
	require.Nil(t, feed(t, tr, 21, 24, false)) // 3 rejects, within tolerance
	assert.True(t, tr.Active())
}

// A rejected run of length <= tolerance never closes an active segment.
func TestToleranceAbsorbsShortDips(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	feed(t, tr, 0, 45, true)
	require.Nil(t, feed(t, tr, 45, 48, false))
	assert.True(t, tr.Active())

	// Acceptance resets the counter, so another full dip is absorbed too.
	tr.Observe(48, ts(48), true)
	require.Nil(t, feed(t, tr, 49, 52, false))
	assert.True(t, tr.Active())
}

// Frames 0-59 accepted, 60 onward rejected: segment opens at t=0 and closes
// on the 4th consecutive reject with the boundary rolled back to t=2.0s.
func TestCloseRollsBackToleratedRun(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	feed(t, tr, 0, 60, true)
	closed := feed(t, tr, 60, 70, false)

	require.NotNil(t, closed)
	assert.Equal(t, time.Duration(0), closed.Start)
	assert.Equal(t, 2*time.Second, closed.End)
	assert.False(t, tr.Active())
}

func TestLastValidBoundary(t *testing.T) {
	tr := newTracker(3, config.BoundaryLastValid)

	feed(t, tr, 0, 60, true)
	closed := feed(t, tr, 60, 70, false)

	require.NotNil(t, closed)
	assert.Equal(t, ts(59), closed.End)
}

// With a stride above one the compat subtraction mixes sampled counts with
// raw frame indices and lands between samples; last-valid stays on the last
// accepted sample.
func TestBoundaryModesDivergeUnderStride(t *testing.T) {
	const stride = 10

	observe := func(tr *Tracker) *ClosedSegment {
		for i := 0; i < 6; i++ { // samples 0,10,...,50 accepted
			tr.Observe(i*stride, ts(i*stride), true)
		}
		for i := 6; ; i++ { // samples 60,70,... rejected
			if res := tr.Observe(i*stride, ts(i*stride), false); res.Closed != nil {
				return res.Closed
			}
		}
	}

	compat := observe(newTracker(3, config.BoundaryCompat))
	lastValid := observe(newTracker(3, config.BoundaryLastValid))

	// Close fires at sample 90; compat subtracts 3 sampled rejections from
	// the raw index.
	assert.Equal(t, ts(87), compat.End)
	assert.Equal(t, ts(50), lastValid.End)
	assert.NotEqual(t, compat.End, lastValid.End)
}

func TestMidStreamDipDoesNotSplitSegment(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	feed(t, tr, 0, 45, true)
	require.Nil(t, feed(t, tr, 45, 48, false))
	feed(t, tr, 48, 90, true)
	closed := feed(t, tr, 90, 100, false)

	require.NotNil(t, closed)
	assert.Equal(t, time.Duration(0), closed.Start)
	assert.Equal(t, ts(90), closed.End) // close fires at frame 93, rolled back
}

func TestFlushClosesActiveSegment(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)
	total := 10 * time.Second

	feed(t, tr, 0, 60, true)
	seg, ok := tr.Flush(total)

	require.True(t, ok)
	assert.Equal(t, time.Duration(0), seg.Start)
	assert.Equal(t, total, seg.End)
	assert.False(t, tr.Active())
}

func TestFlushWhileIdleIsNoop(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	_, ok := tr.Flush(10 * time.Second)
	assert.False(t, ok)

	feed(t, tr, 0, 60, true)
	feed(t, tr, 60, 70, false) // closes
	_, ok = tr.Flush(10 * time.Second)
	assert.False(t, ok)
}

func TestEveryCloseOrdersBoundaries(t *testing.T) {
	tr := newTracker(0, config.BoundaryCompat)

	// Zero tolerance: every reject after an open closes immediately.
	for i := 0; i < 200; i += 2 {
		tr.Observe(i, ts(i), true)
		res := tr.Observe(i+1, ts(i+1), false)
		require.NotNil(t, res.Closed)
		assert.GreaterOrEqual(t, res.Closed.End, res.Closed.Start)
	}
}

func TestReset(t *testing.T) {
	tr := newTracker(3, config.BoundaryCompat)

	feed(t, tr, 0, 60, true)
	require.True(t, tr.Active())

	tr.Reset()
	assert.False(t, tr.Active())

	// Fresh stream after reset behaves like a new tracker.
	res := tr.Observe(0, ts(0), true)
	assert.True(t, res.Opened)
}
