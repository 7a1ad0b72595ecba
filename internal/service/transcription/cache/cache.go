// Package cache memoizes transcripts by the content hash of the audio, so
// re-running the pipeline on the same recording skips transcription.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/service/transcription"
)

const keyPrefix = "transcript:"

// Backend stores opaque values by key.
type Backend interface {
	// Get returns ok=false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key returns the cache key for audio.
func Key(audio []byte) string {
	sum := sha256.Sum256(audio)
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Transcriber wraps another transcriber with a cache. Backend faults are
// logged and bypassed.
type Transcriber struct {
	next    transcription.Transcriber
	backend Backend
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New wraps next. A zero ttl keeps entries until evicted by the backend.
func New(next transcription.Transcriber, backend Backend, ttl time.Duration, m *metrics.Metrics) *Transcriber {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Transcriber{
		next:    next,
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  logging.WithComponent("transcription.cache"),
	}
}

// Wrap decorates every transcriber built by f.
func Wrap(f transcription.Factory, backend Backend, ttl time.Duration, m *metrics.Metrics) transcription.Factory {
	return func(ctx context.Context, credential string) (transcription.Transcriber, error) {
		next, err := f(ctx, credential)
		if err != nil {
			return nil, err
		}
		return New(next, backend, ttl, m), nil
	}
}

// Transcribe implements transcription.Transcriber. Only completed
// transcripts are stored.
func (c *Transcriber) Transcribe(ctx context.Context, audio []byte) (*models.Transcript, error) {
	key := Key(audio)

	if t, ok := c.lookup(ctx, key); ok {
		c.metrics.RecordCacheLookup(true)
		c.logger.Info().Str("key", key).Str("externalId", t.ExternalID).Msg("Transcript cache hit")
		return t, nil
	}
	c.metrics.RecordCacheLookup(false)

	t, err := c.next.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Status != models.TranscriptStatusCompleted {
		return t, nil
	}

	raw, err := json.Marshal(t)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to encode transcript for cache")
		return t, nil
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to store transcript in cache")
	}
	return t, nil
}

func (c *Transcriber) lookup(ctx context.Context, key string) (*models.Transcript, bool) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Transcript cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var t models.Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	return &t, true
}
