// Package store persists debate graphs in SQLite. A debate is written in a
// single transaction: either every row of the graph becomes visible or
// none does.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
)

// ErrNotFound is returned when a debate or argument does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the debate database.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. An empty path or ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	memory := path == "" || path == ":memory:"
	var dsn string
	if memory {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes
	// writers on disk.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:     db,
		now:    time.Now,
		logger: logging.WithComponent("store"),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CommitDebate writes g in one transaction and returns the durable debate
// id. Arguments are inserted in TempID order and the temporary-to-durable
// mapping is recorded as they go; relations are rewritten through that
// mapping. NONE relations are not stored.
func (s *Store) CommitDebate(ctx context.Context, g *models.DebateGraph) (id int64, err error) {
	if g.Transcript == nil {
		return 0, errors.New("commit debate: transcript is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error().Err(rbErr).Msg("Rollback failed")
			}
		}
	}()

	debateID, err := insertDebate(ctx, tx, g, s.now())
	if err != nil {
		return 0, err
	}
	if err := insertTranscript(ctx, tx, debateID, g.Transcript); err != nil {
		return 0, err
	}

	ids := models.NewIDMap(len(g.Arguments))
	for _, a := range g.Arguments {
		argID, err := insertArgument(ctx, tx, debateID, a)
		if err != nil {
			return 0, err
		}
		if err := ids.Record(a.TempID, argID); err != nil {
			return 0, err
		}
	}

	for _, r := range models.Graphable(g.Relations) {
		if err := insertRelation(ctx, tx, debateID, ids, r); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return debateID, nil
}

func insertDebate(ctx context.Context, tx *sql.Tx, g *models.DebateGraph, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO debates (title, description, created_at) VALUES (?, ?, ?)`,
		g.Title, g.Description, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert debate: %w", err)
	}
	return res.LastInsertId()
}

func insertTranscript(ctx context.Context, tx *sql.Tx, debateID int64, t *models.Transcript) error {
	utterances, err := json.Marshal(nonNil(t.Utterances))
	if err != nil {
		return fmt.Errorf("encode utterances: %w", err)
	}
	words, err := json.Marshal(nonNil(t.Words))
	if err != nil {
		return fmt.Errorf("encode words: %w", err)
	}
	var errText sql.NullString
	if t.Error != "" {
		errText = sql.NullString{String: t.Error, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts
			(debate_id, external_id, text, utterances, words, confidence, audio_duration, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debateID, t.ExternalID, t.Text, string(utterances), string(words),
		t.Confidence, t.AudioDuration, t.Status, errText)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func insertArgument(ctx context.Context, tx *sql.Tx, debateID int64, a models.AnalyzedArgument) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO arguments
			(debate_id, position, scheme, conclusion, text, speaker, start_ms, end_ms, short_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debateID, a.TempID, a.Analysis.Scheme, a.Analysis.Conclusion, a.Segment.Text,
		a.Segment.Speaker, a.Segment.Start, a.Segment.End, a.Analysis.ShortName)
	if err != nil {
		return 0, fmt.Errorf("insert argument %d: %w", a.TempID, err)
	}
	argID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, p := range a.Analysis.Premises {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO premises (argument_id, position, text) VALUES (?, ?, ?)`,
			argID, i, p); err != nil {
			return 0, fmt.Errorf("insert premise %d of argument %d: %w", i, a.TempID, err)
		}
	}
	for i, q := range a.Analysis.CriticalQuestions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO critical_questions (argument_id, position, text) VALUES (?, ?, ?)`,
			argID, i, q); err != nil {
			return 0, fmt.Errorf("insert critical question %d of argument %d: %w", i, a.TempID, err)
		}
	}
	return argID, nil
}

func insertRelation(ctx context.Context, tx *sql.Tx, debateID int64, ids *models.IDMap, r models.InferredRelation) error {
	source, err := ids.Resolve(r.Source)
	if err != nil {
		return fmt.Errorf("relation %s source: %w", r, err)
	}
	target, err := ids.Resolve(r.Target)
	if err != nil {
		return fmt.Errorf("relation %s target: %w", r, err)
	}
	var desc sql.NullString
	if r.Description != "" {
		desc = sql.NullString{String: r.Description, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO relations
			(debate_id, source_id, target_id, type, criterion, confidence, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		debateID, source, target, string(r.Type), string(r.Criterion), r.Confidence, desc)
	if err != nil {
		return fmt.Errorf("insert relation %s: %w", r, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
