package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/clipsieve/internal/clips"
	"github.com/keagan/clipsieve/internal/config"
	"github.com/keagan/clipsieve/internal/detect"
	"github.com/keagan/clipsieve/internal/ffmpeg"
	"github.com/keagan/clipsieve/internal/metrics"
	"github.com/keagan/clipsieve/internal/quality"
	"github.com/keagan/clipsieve/internal/segment"
	"github.com/keagan/clipsieve/pkg/util"
	"github.com/rs/zerolog"
)

// How often the loop reports processing speed, in sampled frames.
const speedReportInterval = 50

// Pipeline orchestrates the frame loop: decode, detect, classify, track,
// emit. Frames flow through strictly one at a time; nothing is buffered
// beyond the current frame and the tracker's state.
type Pipeline struct {
	logger   zerolog.Logger
	cfg      *config.Config
	ffmpeg   *ffmpeg.Executor
	detector detect.Detector
	metrics  *metrics.Collector
	observer Observer
}

// New creates a pipeline. The config is validated here so a bad threshold
// aborts before any frame is read.
func New(logger zerolog.Logger, cfg *config.Config, exec *ffmpeg.Executor, detector detect.Detector) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		cfg:      cfg,
		ffmpeg:   exec,
		detector: detector,
	}, nil
}

// SetObserver registers a per-sample event sink.
func (p *Pipeline) SetObserver(obs Observer) {
	p.observer = obs
}

// SetMetrics attaches a metrics collector.
func (p *Pipeline) SetMetrics(c *metrics.Collector) {
	p.metrics = c
}

// Process probes the source, opens the frame stream, and runs the loop to
// completion. An unreadable source or one with no frames is fatal.
func (p *Pipeline) Process(ctx context.Context, input string) (*Report, error) {
	info, err := p.ffmpeg.ProbeVideo(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	fps := info.FPS
	if p.cfg.Sampling.ForcedFPS > 0 {
		fps = p.cfg.Sampling.ForcedFPS
	}
	if fps <= 0 {
		return nil, fmt.Errorf("could not determine frame rate for %s", input)
	}

	p.logger.Info().
		Str("input", input).
		Float64("fps", fps).
		Int("width", info.Width).
		Int("height", info.Height).
		Dur("duration", info.Duration).
		Msg("video metadata extracted")

	if err := util.EnsureDir(p.cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	reader, err := p.ffmpeg.OpenFrameReader(ctx, input, info.Width, info.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame stream: %w", err)
	}
	defer reader.Close()

	emitter := clips.NewEmitter(
		p.logger,
		p.ffmpeg,
		input,
		p.cfg.OutputDir,
		time.Duration(p.cfg.Sampling.MinClipDuration*float64(time.Second)),
		time.Duration(p.cfg.FFmpeg.TrimTimeout)*time.Second,
	)

	streamInfo := StreamInfo{
		Width:    info.Width,
		Height:   info.Height,
		FPS:      fps,
		Duration: info.Duration,
	}

	report, err := p.ProcessStream(ctx, reader, streamInfo, emitter)
	if report != nil {
		report.Source = input
	}
	return report, err
}

// ProcessStream runs the frame loop over an already-open source. Exposed
// separately so streams can be driven without ffmpeg in front.
func (p *Pipeline) ProcessStream(ctx context.Context, src Source, info StreamInfo, emitter *clips.Emitter) (*Report, error) {
	if info.FPS <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %.2f", info.FPS)
	}

	tracker := segment.New(p.logger, p.cfg.Sampling, info.FPS)
	report := &Report{RunID: uuid.NewString()}
	stride := p.cfg.Sampling.SampleStride
	start := time.Now()

	frameIdx := 0
	cancelled := false

loop:
	for {
		select {
		case <-ctx.Done():
			cancelled = true
			break loop
		default:
		}

		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn().Err(err).Int("frame", frameIdx).Msg("frame read failed, ending stream")
			break
		}

		if frameIdx%(stride+1) == 0 {
			p.processSample(ctx, frameIdx, frame, info, tracker, emitter, report, start)
		}

		frameIdx++
		report.FramesRead++
		if p.metrics != nil {
			p.metrics.FramesRead.Inc()
		}
	}

	// Flush: an in-progress segment is closed at the total stream duration,
	// or at the elapsed position when the run was cancelled mid-stream.
	flushAt := info.Duration
	if cancelled {
		flushAt = util.FrameTimestamp(frameIdx, info.FPS)
		p.logger.Warn().Dur("elapsed", flushAt).Msg("cancelled, closing in-progress segment")
	}
	if seg, ok := tracker.Flush(flushAt); ok {
		p.emitSegment(ctx, emitter, seg, report)
	}

	report.Cancelled = cancelled
	report.Clips = emitter.Emitted()
	report.Discarded = emitter.Discarded()
	report.TrimFailures = emitter.Failures()
	report.Elapsed = time.Since(start)
	if report.Elapsed > 0 {
		report.AvgSpeed = float64(report.Samples) / report.Elapsed.Seconds()
	}

	p.logger.Info().
		Str("run_id", report.RunID).
		Int("frames", report.FramesRead).
		Int("samples", report.Samples).
		Int("clips", len(report.Clips)).
		Int("discarded", report.Discarded).
		Float64("avg_speed", report.AvgSpeed).
		Msg("processing complete")

	return report, nil
}

func (p *Pipeline) processSample(ctx context.Context, frameIdx int, frame []byte, info StreamInfo, tracker *segment.Tracker, emitter *clips.Emitter, report *Report, start time.Time) {
	ts := util.FrameTimestamp(frameIdx, info.FPS)

	faces, err := p.detector.Detect(ctx, frame, info.Width, info.Height)
	if err != nil {
		// A failed detection counts as zero faces and flows through the
		// face-count rejection path.
		p.logger.Warn().Err(err).Int("frame", frameIdx).Msg("detector failed, treating frame as faceless")
		faces = nil
	}

	confident := detect.FilterByScore(faces, p.cfg.Quality.DetScoreThreshold)
	verdict := quality.Classify(confident, info.Width, info.Height, p.cfg.Quality)

	tr := tracker.Observe(frameIdx, ts, verdict.Accepted)
	if tr.Closed != nil {
		p.emitSegment(ctx, emitter, *tr.Closed, report)
	}

	report.Samples++
	if verdict.Accepted {
		report.Accepted++
	} else {
		report.Rejected++
	}

	if p.metrics != nil {
		outcome := "rejected"
		if verdict.Accepted {
			outcome = "accepted"
		}
		p.metrics.SamplesClassified.WithLabelValues(outcome).Inc()
	}

	p.logger.Debug().
		Int("frame", frameIdx).
		Dur("ts", ts).
		Bool("accepted", verdict.Accepted).
		Str("reason", verdict.String()).
		Msg("frame classified")

	if p.observer != nil {
		p.observer(FrameEvent{Index: frameIdx, Timestamp: ts, Verdict: verdict})
	}

	if report.Samples%speedReportInterval == 0 {
		elapsed := time.Since(start).Seconds()
		if elapsed > 0 {
			speed := float64(report.Samples) / elapsed
			p.logger.Info().
				Int("samples", report.Samples).
				Float64("speed", speed).
				Msg("processing speed")
			if p.metrics != nil {
				p.metrics.ProcessingSpeed.Set(speed)
			}
		}
	}
}

func (p *Pipeline) emitSegment(ctx context.Context, emitter *clips.Emitter, seg segment.ClosedSegment, report *Report) {
	if p.metrics != nil {
		p.metrics.SegmentsClosed.Inc()
	}

	clip, err := emitter.Emit(ctx, seg)
	switch {
	case err != nil:
		// Trim failures drop the candidate clip but never stop the stream.
		if p.metrics != nil {
			p.metrics.TrimFailures.Inc()
		}
	case clip == nil:
		if p.metrics != nil {
			p.metrics.ClipsDiscarded.Inc()
		}
	default:
		if p.metrics != nil {
			p.metrics.ClipsEmitted.Inc()
		}
	}
}
