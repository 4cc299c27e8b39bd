// Package metrics exports riskviz pipeline, cache and HTTP events to
// Prometheus by implementing the observability hooks.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/observability"
)

const namespace = "riskviz"

const (
	// OutcomeSuccess labels cases and renders that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels failures whose error carries no code.
	OutcomeError = "error"
)

var (
	casesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_total",
			Help:      "Cases composed, partitioned by outcome (success or error code).",
		},
		[]string{"outcome"},
	)

	caseDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_seconds",
			Help:      "Per-case composition latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	composeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_seconds",
			Help:      "Batch composition latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Artifact renders, partitioned by view and outcome.",
		},
		[]string{"view", "outcome"},
	)

	renderDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_seconds",
			Help:      "Render latency in seconds for all requested formats of one view.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"view"},
	)

	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes, partitioned by key type and event.",
		},
		[]string{"key_type", "event"},
	)

	cacheWrittenBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache, partitioned by key type.",
		},
		[]string{"key_type"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, partitioned by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register attaches riskviz collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		casesTotal,
		caseDurationSeconds,
		composeDurationSeconds,
		rendersTotal,
		renderDurationSeconds,
		cacheEventsTotal,
		cacheWrittenBytes,
		httpRequestsTotal,
		httpDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Install registers the collectors and routes the observability hooks to
// them.
func Install(reg prometheus.Registerer) error {
	if err := Register(reg); err != nil {
		return err
	}
	h := Hooks{}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	return nil
}

// Hooks implements the pipeline, cache and HTTP hooks on the package
// collectors.
type Hooks struct{}

var (
	_ observability.PipelineHooks = Hooks{}
	_ observability.CacheHooks    = Hooks{}
	_ observability.HTTPHooks     = Hooks{}
)

func (Hooks) OnComposeStart(context.Context, int) {}

func (Hooks) OnCaseComplete(_ context.Context, _ int, d time.Duration, err error) {
	casesTotal.WithLabelValues(outcome(err)).Inc()
	caseDurationSeconds.Observe(seconds(d))
}

func (Hooks) OnComposeComplete(_ context.Context, _, _ int, d time.Duration) {
	composeDurationSeconds.Observe(seconds(d))
}

func (Hooks) OnRenderStart(context.Context, string, []string) {}

func (Hooks) OnRenderComplete(_ context.Context, view string, _ []string, d time.Duration, err error) {
	rendersTotal.WithLabelValues(view, outcome(err)).Inc()
	renderDurationSeconds.WithLabelValues(view).Observe(seconds(d))
}

func (Hooks) OnCacheHit(_ context.Context, keyType string) {
	cacheEventsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (Hooks) OnCacheMiss(_ context.Context, keyType string) {
	cacheEventsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	cacheEventsTotal.WithLabelValues(keyType, "set").Inc()
	cacheWrittenBytes.WithLabelValues(keyType).Add(float64(size))
}

func (Hooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDurationSeconds.WithLabelValues(route).Observe(seconds(d))
}

// outcome maps an error to its code label.
func outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return OutcomeError
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
