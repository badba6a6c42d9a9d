package clips

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/keagan/clipsieve/internal/segment"
	"github.com/keagan/clipsieve/pkg/util"
	"github.com/rs/zerolog"
)

// Emitter turns closed segments into extracted clips. Segments shorter than
// the minimum duration are dropped without consuming an index; trim failures
// likewise leave the index untouched, so emitted indices are always
// contiguous from zero.
type Emitter struct {
	logger      zerolog.Logger
	trimmer     Trimmer
	source      string
	outputDir   string
	minDuration time.Duration
	trimTimeout time.Duration

	// Guards the counter and emitted list; trims may be driven from a
	// background goroutine.
	mu        sync.Mutex
	next      int
	emitted   []Clip
	discarded int
	failures  int
}

// NewEmitter creates an emitter for one source video.
func NewEmitter(logger zerolog.Logger, trimmer Trimmer, source, outputDir string, minDuration, trimTimeout time.Duration) *Emitter {
	return &Emitter{
		logger:      logger.With().Str("component", "clip-emitter").Logger(),
		trimmer:     trimmer,
		source:      source,
		outputDir:   outputDir,
		minDuration: minDuration,
		trimTimeout: trimTimeout,
	}
}

// Emit handles one closed segment. It returns the emitted clip, or (nil, nil)
// when the segment was discarded for insufficient duration. A trimmer failure
// is returned for reporting but is not fatal to the stream.
func (e *Emitter) Emit(ctx context.Context, seg segment.ClosedSegment) (*Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	duration := seg.Duration()
	if duration < e.minDuration {
		e.discarded++
		e.logger.Info().
			Dur("duration", duration).
			Dur("minimum", e.minDuration).
			Msg("segment below minimum duration, skipped")
		return nil, nil
	}

	dest := e.destPath(e.next)

	trimCtx := ctx
	if e.trimTimeout > 0 {
		var cancel context.CancelFunc
		trimCtx, cancel = context.WithTimeout(ctx, e.trimTimeout)
		defer cancel()
	}

	if err := e.trimmer.Trim(trimCtx, e.source, seg.Start, seg.End, dest); err != nil {
		e.failures++
		e.logger.Error().
			Err(err).
			Str("dest", dest).
			Msg("trim failed, clip dropped")
		return nil, fmt.Errorf("trim %s: %w", dest, err)
	}

	clip := Clip{
		Index: e.next,
		Start: seg.Start,
		End:   seg.End,
		Path:  dest,
	}
	e.next++
	e.emitted = append(e.emitted, clip)

	e.logger.Info().
		Int("index", clip.Index).
		Str("path", clip.Path).
		Dur("duration", duration).
		Msg("clip saved")
	return &clip, nil
}

func (e *Emitter) destPath(index int) string {
	ext := filepath.Ext(e.source)
	if ext == "" {
		ext = ".mp4"
	}
	name := fmt.Sprintf("%s_croped%d%s", util.Stem(e.source), index, ext)
	return filepath.Join(e.outputDir, name)
}

// Emitted returns the clips produced so far, in index order.
func (e *Emitter) Emitted() []Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Clip, len(e.emitted))
	copy(out, e.emitted)
	return out
}

// Discarded returns how many segments were dropped for insufficient duration.
func (e *Emitter) Discarded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discarded
}

// Failures returns how many trims failed.
func (e *Emitter) Failures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures
}
