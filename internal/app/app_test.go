package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-debate-graph-service/internal/config"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/service/graph"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Path = ""
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(cfg,
		WithLogOutput(&bytes.Buffer{}),
		WithMetrics(metrics.NewMetrics(prometheus.NewRegistry())),
	)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func TestNew_MockProvidersRunPipeline(t *testing.T) {
	a := newTestApp(t, testConfig())
	require.NoError(t, a.Start())

	out, err := a.Assembler.Run(context.Background(), graph.Request{Title: "wired", Audio: []byte("x")})
	require.NoError(t, err)

	detail, err := a.Store.GetDebate(context.Background(), out.DebateID)
	require.NoError(t, err)
	assert.Equal(t, "wired", detail.Debate.Title)
	assert.Len(t, detail.Arguments, out.Arguments)
}

func TestNew_BadgerCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "badger"
	cfg.Cache.BadgerPath = filepath.Join(t.TempDir(), "cache")
	a := newTestApp(t, cfg)

	for i := 0; i < 2; i++ {
		_, err := a.Assembler.Run(context.Background(), graph.Request{Audio: []byte("same audio")})
		require.NoError(t, err)
	}
}

func TestNew_UnknownProviders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"oracle", func(c *config.Config) { c.Oracle.Provider = "oracle-of-delphi" }},
		{"transcription", func(c *config.Config) { c.Transcription.Provider = "stenographer" }},
		{"cache", func(c *config.Config) { c.Cache.Backend = "memcached" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := New(cfg, WithLogOutput(&bytes.Buffer{}), WithMetrics(metrics.NewMetrics(prometheus.NewRegistry())))
			assert.Error(t, err)
		})
	}
}
