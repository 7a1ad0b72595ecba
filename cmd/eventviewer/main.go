// Event Viewer - live debate pipeline events
// Consumes debate.created / debate.failed from Kafka and pushes them to
// browsers over WebSocket.
package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ai-debate-graph-service/internal/observability/logging"
)

//go:embed static/*
var staticFiles embed.FS

type options struct {
	port         string
	brokers      string
	topicCreated string
	topicFailed  string
	since        time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "eventviewer",
		Short:        "Stream debate pipeline events to the browser",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.port, "port", "8081", "HTTP server port")
	f.StringVar(&opts.brokers, "brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	f.StringVar(&opts.topicCreated, "topic-created", "debate.created", "Committed debate topic")
	f.StringVar(&opts.topicFailed, "topic-failed", "debate.failed", "Failed run topic")
	f.DurationVar(&opts.since, "since", time.Hour, "Replay events newer than this")
	return cmd
}

func newMux(hub *Hub) (*http.ServeMux, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", wsHandler(hub))
	return mux, nil
}

func serve(parent context.Context, opts options) error {
	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	logging.Init(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := newHub()
	go hub.run(ctx)

	brokers := strings.Split(opts.brokers, ",")
	go consumeKafka(ctx, hub, brokers, opts.topicCreated, opts.since)
	go consumeKafka(ctx, hub, brokers, opts.topicFailed, opts.since)

	mux, err := newMux(hub)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: ":" + opts.port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("url", "http://localhost:"+opts.port).
		Strs("brokers", brokers).
		Strs("topics", []string{opts.topicCreated, opts.topicFailed}).
		Msg("Event Viewer starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
