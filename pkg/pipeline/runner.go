package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/riskviz/pkg/cache"
	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/observability"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides cache.TTLLayout and cache.TTLArtifact when positive.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the compose → render pipeline with caching. Cases that fail to
// compose are reported in Result.Batch.Failures and get no artifacts.
func (r *Runner) Execute(ctx context.Context, cases []record.Case, index record.Index, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Compose
	composeStart := time.Now()
	batch, hits, err := r.ComposeWithCacheInfo(ctx, cases, index, opts)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	result.Batch = batch
	result.Stats.ComposeTime = time.Since(composeStart)
	result.Stats.Cases = len(batch.Results)
	result.Stats.Failed = len(batch.Failures)
	result.CacheInfo.LayoutHits = hits

	r.Logger.Info("composed layouts",
		"run", batch.RunID,
		"cases", len(batch.Results),
		"failed", len(batch.Failures),
		"cached", hits,
		"duration", result.Stats.ComposeTime)

	// Stage 2: Render
	renderStart := time.Now()
	if opts.IsComparison() {
		if len(batch.Results) > 0 {
			files, hit, err := r.RenderBatchWithCacheInfo(ctx, batch.Results, opts)
			if err != nil {
				return nil, fmt.Errorf("render: %w", err)
			}
			result.Comparison = files
			if hit {
				result.CacheInfo.RenderHits++
			}
		}
	} else {
		result.Artifacts = make([]CaseArtifacts, 0, len(batch.Results))
		for i := range batch.Results {
			res := &batch.Results[i]
			files, hit, err := r.RenderWithCacheInfo(ctx, res, opts)
			if err != nil {
				return nil, fmt.Errorf("render case %d: %w", res.Case.ID, err)
			}
			if hit {
				result.CacheInfo.RenderHits++
			}
			result.Artifacts = append(result.Artifacts, CaseArtifacts{Case: res.Case, Files: files})
		}
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"view", opts.View,
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ComposeWithCacheInfo lays out every case, reusing cached layouts, and
// returns how many cases came from cache. Failed cases are never cached.
func (r *Runner) ComposeWithCacheInfo(ctx context.Context, cases []record.Case, index record.Index, opts Options) (*compose.Batch, int, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForCompose(); err != nil {
		return nil, 0, err
	}
	hooks := observability.Cache()

	cached := make([]*compose.Result, len(cases))
	keys := make([]string, len(cases))
	var missing []record.Case
	hits := 0

	for i, c := range cases {
		key, err := r.layoutKey(c, index.For(c.ID), opts)
		if err != nil {
			return nil, 0, err
		}
		keys[i] = key
		if !opts.Refresh {
			if res, ok := r.cachedLayout(ctx, key); ok {
				cached[i] = res
				hits++
				hooks.OnCacheHit(ctx, keyTypeLayout)
				continue
			}
			hooks.OnCacheMiss(ctx, keyTypeLayout)
		}
		missing = append(missing, c)
	}

	fresh, err := compose.Compose(ctx, missing, index, opts.ComposeOptions())
	if err != nil {
		return nil, 0, err
	}

	// Merge cached and fresh outcomes back into input order. Compose keeps
	// the order of missing within both Results and Failures.
	batch := &compose.Batch{RunID: uuid.NewString()}
	ri, fi := 0, 0
	for i, c := range cases {
		if cached[i] != nil {
			batch.Results = append(batch.Results, *cached[i])
			continue
		}
		if fi < len(fresh.Failures) && fresh.Failures[fi].Case == c {
			batch.Failures = append(batch.Failures, fresh.Failures[fi])
			fi++
			continue
		}
		res := fresh.Results[ri]
		ri++
		batch.Results = append(batch.Results, res)
		if data, err := json.Marshal(res); err == nil {
			if err := r.Cache.Set(ctx, keys[i], data, r.ttl(cache.TTLLayout)); err != nil {
				r.Logger.Debug("cache layout", "case", c.ID, "err", err)
			} else {
				hooks.OnCacheSet(ctx, keyTypeLayout, len(data))
			}
		}
	}
	return batch, hits, nil
}

// Compose is a convenience wrapper that calls ComposeWithCacheInfo and discards the cache hit info.
func (r *Runner) Compose(ctx context.Context, cases []record.Case, index record.Index, opts Options) (*compose.Batch, error) {
	batch, _, err := r.ComposeWithCacheInfo(ctx, cases, index, opts)
	return batch, err
}

// RenderWithCacheInfo renders one case in opts.View for every format in
// opts.Formats and reports whether all artifacts came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, res *compose.Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutHash, err := cache.HashValue(res)
	if err != nil {
		return nil, false, fmt.Errorf("hash layout for cache key: %w", err)
	}
	return r.renderCached(ctx, layoutHash, opts, func(f sink.Format) ([]byte, error) {
		return sink.Render(res, sink.View(opts.View), f, opts.SinkOptions()...)
	})
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, res *compose.Result, opts Options) (map[string][]byte, error) {
	files, _, err := r.RenderWithCacheInfo(ctx, res, opts)
	return files, err
}

// RenderBatchWithCacheInfo renders the comparison view over results.
func (r *Runner) RenderBatchWithCacheInfo(ctx context.Context, results []compose.Result, opts Options) (map[string][]byte, bool, error) {
	opts.View = string(sink.ViewComparison)
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutHash, err := cache.HashValue(struct {
		Results []compose.Result  `json:"results"`
		Labels  map[string]string `json:"labels,omitempty"`
	}{results, opts.Labels})
	if err != nil {
		return nil, false, fmt.Errorf("hash layout for cache key: %w", err)
	}
	return r.renderCached(ctx, layoutHash, opts, func(f sink.Format) ([]byte, error) {
		return sink.RenderBatch(results, f, opts.SinkOptions()...)
	})
}

// RenderBatch is a convenience wrapper that calls RenderBatchWithCacheInfo and discards the cache hit info.
func (r *Runner) RenderBatch(ctx context.Context, results []compose.Result, opts Options) (map[string][]byte, error) {
	files, _, err := r.RenderBatchWithCacheInfo(ctx, results, opts)
	return files, err
}

// renderCached serves every format from cache or renders all of them.
func (r *Runner) renderCached(ctx context.Context, layoutHash string, opts Options, render func(sink.Format) ([]byte, error)) (map[string][]byte, bool, error) {
	hooks := observability.Cache()
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, keyTypeArtifact)
			break
		}
		hooks.OnCacheHit(ctx, keyTypeArtifact)
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	pipelineHooks := observability.Pipeline()
	start := time.Now()
	pipelineHooks.OnRenderStart(ctx, opts.View, opts.Formats)

	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := render(sink.Format(format))
		if err != nil {
			pipelineHooks.OnRenderComplete(ctx, opts.View, opts.Formats, time.Since(start), err)
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		rendered[format] = data
	}
	pipelineHooks.OnRenderComplete(ctx, opts.View, opts.Formats, time.Since(start), nil)

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLArtifact)); err == nil {
			hooks.OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	return rendered, false, nil
}

// layoutKey derives the cache key of a case layout from the case, its
// attributions and the compose options.
func (r *Runner) layoutKey(c record.Case, attrs []record.Attribution, opts Options) (string, error) {
	caseHash, err := cache.HashValue(struct {
		Case  record.Case          `json:"case"`
		Attrs []record.Attribution `json:"attrs"`
	}{c, attrs})
	if err != nil {
		return "", err
	}
	return r.Keyer.LayoutKey(caseHash, opts.LayoutKeyOpts()), nil
}

func (r *Runner) cachedLayout(ctx context.Context, key string) (*compose.Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var res compose.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
