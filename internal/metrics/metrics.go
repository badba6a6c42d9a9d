package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Collector bundles the pipeline's prometheus instruments. Constructing it
// against a fresh registry keeps parallel test pipelines from colliding on
// registration.
type Collector struct {
	registry *prometheus.Registry

	FramesRead        prometheus.Counter
	SamplesClassified *prometheus.CounterVec
	SegmentsClosed    prometheus.Counter
	ClipsEmitted      prometheus.Counter
	ClipsDiscarded    prometheus.Counter
	TrimFailures      prometheus.Counter
	ProcessingSpeed   prometheus.Gauge
}

// NewCollector registers all pipeline metrics on a private registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		FramesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsieve_frames_read_total",
			Help: "Total frames read from the source, including skipped ones",
		}),
		SamplesClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clipsieve_samples_classified_total",
			Help: "Total sampled frames classified, by outcome",
		}, []string{"outcome"}),
		SegmentsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsieve_segments_closed_total",
			Help: "Total segments closed by the tracker",
		}),
		ClipsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsieve_clips_emitted_total",
			Help: "Total clips successfully extracted",
		}),
		ClipsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsieve_clips_discarded_total",
			Help: "Total segments dropped for insufficient duration",
		}),
		TrimFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "clipsieve_trim_failures_total",
			Help: "Total failed trim invocations",
		}),
		ProcessingSpeed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clipsieve_processing_fps",
			Help: "Current processing speed in frames per second",
		}),
	}
}

// Serve exposes /metrics and /healthz on addr until the context is done.
func (c *Collector) Serve(ctx context.Context, addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}
