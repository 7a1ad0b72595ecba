package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ai-debate-graph-service/internal/config"
	"ai-debate-graph-service/internal/events"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/oracle"
	oraclemock "ai-debate-graph-service/internal/oracle/mock"
	"ai-debate-graph-service/internal/oracle/openai"
	"ai-debate-graph-service/internal/service/graph"
	"ai-debate-graph-service/internal/service/transcription"
	"ai-debate-graph-service/internal/service/transcription/cache"
	"ai-debate-graph-service/internal/service/transcription/google"
	transcriptionmock "ai-debate-graph-service/internal/service/transcription/mock"
	"ai-debate-graph-service/internal/store"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Metrics     *metrics.Metrics
	Store       *store.Store
	Events      *events.Publisher
	Assembler   *graph.Assembler

	cache     cache.Backend
	logOutput io.Writer
}

// Option customizes an Application.
type Option func(*Application)

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *Application) { a.logOutput = w }
}

// WithMetrics replaces metrics.DefaultMetrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Application) { a.Metrics = m }
}

// New constructs a new Application from the provided configuration and
// wires the pipeline components.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{
		Cfg:     cfg,
		Metrics: metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	if err := a.wire(); err != nil {
		a.Shutdown()
		return nil, err
	}

	appLogger.Info().
		Str("oracleProvider", cfg.Oracle.Provider).
		Str("transcriptionProvider", cfg.Transcription.Provider).
		Str("cacheBackend", cfg.Cache.Backend).
		Str("storePath", cfg.Store.Path).
		Msg("AI Debate Graph service application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	obs := a.Cfg.Observability
	format := obs.LogFormat
	if a.Cfg.Service.Env == "dev" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:      obs.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
		Output:     a.logOutput,
	})

	a.Logger = logging.Logger().With().
		Str("service", a.Cfg.Service.Name).
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Env).
		Msg("Logger setup completed")
}

func (a *Application) wire() error {
	st, err := store.Open(a.Cfg.Store.Path)
	if err != nil {
		return err
	}
	a.Store = st

	transcribers, err := a.transcriptionFactory()
	if err != nil {
		return err
	}
	oracles, err := a.oracleFactory()
	if err != nil {
		return err
	}

	a.Events = events.New(&events.Config{
		Enabled:      a.Cfg.Kafka.Enabled,
		Brokers:      a.Cfg.Kafka.Brokers,
		TopicCreated: a.Cfg.Kafka.TopicCreated,
		TopicFailed:  a.Cfg.Kafka.TopicFailed,
		Principal:    a.Cfg.Kafka.Principal,
	}, a.Metrics)

	a.Assembler = graph.New(graph.Config{
		AnalysisConcurrency: a.Cfg.Pipeline.AnalysisConcurrency,
		MaxRelationPairs:    a.Cfg.Pipeline.MaxRelationPairs,
		CommitTimeout:       a.Cfg.Pipeline.CommitTimeout,
	}, graph.Deps{
		Transcribers: transcribers,
		Oracles:      oracles,
		Store:        a.Store,
		Events:       a.Events,
		Metrics:      a.Metrics,
	})
	return nil
}

func (a *Application) transcriptionFactory() (transcription.Factory, error) {
	tc := a.Cfg.Transcription

	var f transcription.Factory
	switch tc.Provider {
	case "google":
		f = google.Factory(google.Config{
			LanguageCode:  tc.LanguageCode,
			SampleRateHz:  int32(tc.SampleRateHz),
			AudioEncoding: tc.AudioEncoding,
			MinSpeakers:   int32(tc.MinSpeakers),
			MaxSpeakers:   int32(tc.MaxSpeakers),
			Model:         tc.Model,
		})
	case "mock", "":
		f = transcriptionmock.Factory(transcriptionmock.New(nil))
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", tc.Provider)
	}

	backend, err := a.openCache()
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return f, nil
	}
	a.cache = backend
	return cache.Wrap(f, backend, a.Cfg.Cache.TTL, a.Metrics), nil
}

func (a *Application) openCache() (cache.Backend, error) {
	cc := a.Cfg.Cache
	switch cc.Backend {
	case "badger":
		return cache.OpenBadger(cc.BadgerPath)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.ConnectRedis(ctx, cc.RedisAddr)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cc.Backend)
	}
}

func (a *Application) oracleFactory() (oracle.Factory, error) {
	oc := a.Cfg.Oracle
	switch oc.Provider {
	case "openai":
		return openai.Factory(openai.Config{
			Model:       oc.Model,
			BaseURL:     oc.BaseURL,
			Temperature: float32(oc.Temperature),
			Timeout:     oc.Timeout,
		}), nil
	case "mock", "":
		return oraclemock.Factory(oraclemock.NewHeuristic()), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", oc.Provider)
	}
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("AI Debate Graph service starting")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Ready(ctx)
}

// Ready reports whether the service can accept runs.
func (a *Application) Ready(ctx context.Context) error {
	if a.Store == nil {
		return fmt.Errorf("store not open")
	}
	return a.Store.Ping(ctx)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("AI Debate Graph service shutting down")

	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close transcript cache")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close store")
		}
	}
}
