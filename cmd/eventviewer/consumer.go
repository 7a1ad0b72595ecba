package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-debate-graph-service/internal/events"
)

// describe decodes a debate event for logging. ok is false for payloads
// that are not debate events; those are not forwarded.
func describe(payload []byte) (summary map[string]any, ok bool) {
	var envelope struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, false
	}

	switch envelope.EventType {
	case events.TypeDebateCreated:
		var e events.DebateCreated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, false
		}
		return map[string]any{
			"runId":     e.RunID,
			"debateId":  e.DebateID,
			"title":     truncate(e.Title, 40),
			"arguments": e.Arguments,
			"relations": e.Relations,
		}, true
	case events.TypeDebateFailed:
		var e events.DebateFailed
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, false
		}
		return map[string]any{
			"runId": e.RunID,
			"title": truncate(e.Title, 40),
			"stage": e.Stage,
			"kind":  e.Kind,
		}, true
	default:
		return nil, false
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers []string, topic string, since time.Duration) {
	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the start")
	}

	log.Info().Str("topic", topic).Dur("since", since).Msg("Consuming from Kafka topic partition 0")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("topic", topic).Msg("Kafka read error")
			time.Sleep(time.Second)
			continue
		}

		summary, ok := describe(msg.Value)
		if !ok {
			log.Warn().Str("topic", topic).Int64("offset", msg.Offset).Msg("Skipping non-debate message")
			continue
		}
		log.Info().Fields(summary).Str("topic", topic).Msg("Received event")

		select {
		case hub.broadcast <- msg.Value:
		case <-ctx.Done():
			return
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
