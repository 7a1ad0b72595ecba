package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ai-debate-graph-service/internal/app"
	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/schema"
	"ai-debate-graph-service/internal/service/graph"
)

const defaultMaxAudioBytes = 100 * 1024 * 1024

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req graph.Request) (*graph.Outcome, error)
}

// Reader serves the persisted debate graphs.
type Reader interface {
	ListDebates(ctx context.Context) ([]models.DebateSummary, error)
	GetDebate(ctx context.Context, id int64) (*models.DebateDetail, error)
	Premises(ctx context.Context, argumentID int64) ([]models.Premise, error)
	CriticalQuestions(ctx context.Context, argumentID int64) ([]models.CriticalQuestion, error)
	DeleteDebate(ctx context.Context, id int64) error
}

// API holds the HTTP handlers.
type API struct {
	Runner  Runner
	Reader  Reader
	Ready   func(ctx context.Context) error
	Metrics *metrics.Metrics
	// MaxAudioBytes bounds uploaded audio; larger uploads get 413.
	MaxAudioBytes int64
	// RequireCredentials rejects uploads without both credentials. Off when
	// running against the offline mock providers.
	RequireCredentials bool

	validator *schema.Validator
	logger    zerolog.Logger
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	cfg := application.Cfg
	return (&API{
		Runner:             application.Assembler,
		Reader:             application.Store,
		Ready:              application.Ready,
		Metrics:            application.Metrics,
		MaxAudioBytes:      cfg.Pipeline.MaxAudioBytes,
		RequireCredentials: cfg.Oracle.Provider != "mock" || cfg.Transcription.Provider != "mock",
	}).Routes()
}

// Routes returns the router for api.
func (api *API) Routes() http.Handler {
	if api.Metrics == nil {
		api.Metrics = metrics.DefaultMetrics
	}
	if api.MaxAudioBytes <= 0 {
		api.MaxAudioBytes = defaultMaxAudioBytes
	}
	api.validator = schema.New()
	api.logger = logging.WithComponent("http")

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(api.instrument)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, r *http.Request) {
		if api.Ready != nil {
			if err := api.Ready(r.Context()); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/debates", api.upload)
		r.Post("/debates/import", api.importTranscript)
		r.Get("/debates", api.listDebates)
		r.Get("/debates/{id}", api.getDebate)
		r.Delete("/debates/{id}", api.deleteDebate)
		r.Get("/arguments/{id}/premises", api.premises)
		r.Get("/arguments/{id}/critical-questions", api.criticalQuestions)
	})

	return r
}

// instrument records request count and latency by route pattern.
func (api *API) instrument(next http.Handler) http.Handler {
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
		api.Metrics.RecordRequest("http", r.Method+" "+route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}
