// Package server exposes composed layouts and rendered figures over HTTP.
//
// Routes:
//
//	GET /healthz                                 liveness
//	GET /cases                                   loaded cases
//	GET /cases/{id}/layout?format=json|yaml      composed layout of one case
//	GET /cases/{id}/render?view=&format=&width=  one figure of one case
//	GET /compare?format=                         comparison view of all cases
//	GET /metrics                                 Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/riskviz/pkg/buildinfo"
	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/observability"
	"github.com/matzehuels/riskviz/pkg/pipeline"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
)

// Server serves one loaded dataset.
type Server struct {
	runner  *pipeline.Runner
	opts    pipeline.Options
	cases   []record.Case
	index   record.Index
	logger  *log.Logger
	metrics http.Handler
}

// Config holds the server dependencies.
type Config struct {
	Runner  *pipeline.Runner
	Options pipeline.Options // base options; requests may override view, format and width
	Cases   []record.Case
	Index   record.Index
	Logger  *log.Logger
	Metrics http.Handler // served at /metrics when set
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = cfg.Runner.Logger
	}
	if cfg.Index == nil {
		cfg.Index = record.Index{}
	}
	return &Server{
		runner:  cfg.Runner,
		opts:    cfg.Options,
		cases:   cfg.Cases,
		index:   cfg.Index,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/cases", s.handleCases)
	r.Route("/cases/{id}", func(r chi.Router) {
		r.Get("/layout", s.handleLayout)
		r.Get("/render", s.handleRender)
	})
	r.Get("/compare", s.handleCompare)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "cases", len(s.cases))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": buildinfo.Version, "cases": len(s.cases)})
}

type caseSummary struct {
	record.Case
	Attributions int `json:"attributions"`
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	out := make([]caseSummary, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, caseSummary{Case: c, Attributions: len(s.index[c.ID])})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	res, ok := s.composeCase(w, r)
	if !ok {
		return
	}
	format := sink.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := sink.ParseFormat(q)
		if err != nil {
			writeError(w, err)
			return
		}
		if f != sink.FormatJSON && f != sink.FormatYAML {
			writeError(w, errors.New(errors.ErrCodeInvalidFormat, "layout format must be json or yaml, got %q", q))
			return
		}
		format = f
	}
	data, err := sink.Render(res, "", format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBytes(w, format, data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.requestOptions(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	res, ok := s.composeCase(w, r)
	if !ok {
		return
	}
	files, err := s.runner.Render(r.Context(), res, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBytes(w, format, files[string(format)])
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.requestOptions(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	batch, err := s.runner.Compose(r.Context(), s.cases, s.index, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(batch.Results) == 0 {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no case could be composed"))
		return
	}
	files, err := s.runner.RenderBatch(r.Context(), batch.Results, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBytes(w, format, files[string(format)])
}

// =============================================================================
// Helpers
// =============================================================================

// composeCase looks up and composes the case named by the {id} URL parameter,
// writing an error response on failure.
func (s *Server) composeCase(w http.ResponseWriter, r *http.Request) (*compose.Result, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "case id must be an integer"))
		return nil, false
	}
	c, ok := record.FindCase(s.cases, id)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "case %d not found", id))
		return nil, false
	}

	batch, err := s.runner.Compose(r.Context(), []record.Case{c}, s.index, s.opts)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if len(batch.Failures) > 0 {
		writeError(w, batch.Failures[0].Err)
		return nil, false
	}
	return &batch.Results[0], true
}

// requestOptions applies the view, format and width query parameters to the
// base options. Only the requested format is rendered.
func (s *Server) requestOptions(r *http.Request, comparison bool) (pipeline.Options, sink.Format, error) {
	q := r.URL.Query()
	opts := s.opts

	switch {
	case comparison:
		opts.View = string(sink.ViewComparison)
	case q.Get("view") != "":
		view, err := sink.ParseView(q.Get("view"))
		if err != nil {
			return opts, "", err
		}
		if view == sink.ViewComparison {
			return opts, "", errors.New(errors.ErrCodeInvalidView, "the comparison view is served at /compare")
		}
		opts.View = string(view)
	case opts.IsComparison():
		opts.View = pipeline.DefaultView
	}

	format := sink.FormatSVG
	if f := q.Get("format"); f != "" {
		parsed, err := sink.ParseFormat(f)
		if err != nil {
			return opts, "", err
		}
		format = parsed
	}
	opts.Formats = []string{string(format)}

	if wq := q.Get("width"); wq != "" {
		width, err := strconv.Atoi(wq)
		if err != nil || width <= 0 || width > 4000 {
			return opts, "", errors.New(errors.ErrCodeInvalidInput, "width must be an integer in (0, 4000], got %q", wq)
		}
		opts.Width = width
	}

	if err := opts.ValidateForRender(); err != nil {
		return opts, "", err
	}
	return opts, format, nil
}

// observe reports every response to the HTTP hooks and the log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "duration", d)
	})
}

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorBody{Error: errors.UserMessage(err), Code: code})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidView,
		errors.ErrCodeInvalidPath, errors.ErrCodeInvalidRecord:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidCount, errors.ErrCodeInvalidRange, errors.ErrCodeEmptyDomain,
		errors.ErrCodeEmptyAttributionSet, errors.ErrCodeOutOfDomain:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBytes(w http.ResponseWriter, format sink.Format, data []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
