package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-debate-graph-service/internal/models"
)

// ListDebates returns every debate, newest first, with node and edge counts.
func (s *Store) ListDebates(ctx context.Context) ([]models.DebateSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.description, d.created_at,
			(SELECT COUNT(*) FROM arguments a WHERE a.debate_id = d.id),
			(SELECT COUNT(*) FROM relations r WHERE r.debate_id = d.id)
		FROM debates d
		ORDER BY d.created_at DESC, d.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query debates: %w", err)
	}
	defer rows.Close()

	out := []models.DebateSummary{}
	for rows.Next() {
		var d models.DebateSummary
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &createdAt, &d.Arguments, &d.Relations); err != nil {
			return nil, fmt.Errorf("scan debate: %w", err)
		}
		d.CreatedAt = timeFromMillis(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDebate returns the full graph of one debate.
func (s *Store) GetDebate(ctx context.Context, id int64) (*models.DebateDetail, error) {
	var detail models.DebateDetail
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, created_at FROM debates WHERE id = ?`, id,
	).Scan(&detail.Debate.ID, &detail.Debate.Title, &detail.Debate.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("debate %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan debate: %w", err)
	}
	detail.Debate.CreatedAt = timeFromMillis(createdAt)

	if detail.Transcript, err = s.transcript(ctx, id); err != nil {
		return nil, err
	}
	if detail.Arguments, err = s.arguments(ctx, id); err != nil {
		return nil, err
	}
	if detail.Relations, err = s.relations(ctx, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *Store) transcript(ctx context.Context, debateID int64) (*models.StoredTranscript, error) {
	var t models.StoredTranscript
	var utterances, words string
	var errText sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, debate_id, external_id, text, utterances, words, confidence, audio_duration, status, error
		FROM transcripts WHERE debate_id = ?`, debateID,
	).Scan(&t.ID, &t.DebateID, &t.ExternalID, &t.Text, &utterances, &words,
		&t.Confidence, &t.AudioDuration, &t.Status, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(utterances), &t.Utterances); err != nil {
		return nil, fmt.Errorf("decode utterances: %w", err)
	}
	if err := json.Unmarshal([]byte(words), &t.Words); err != nil {
		return nil, fmt.Errorf("decode words: %w", err)
	}
	t.Error = errText.String
	return &t, nil
}

func (s *Store) arguments(ctx context.Context, debateID int64) ([]models.Argument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, debate_id, scheme, conclusion, text, speaker, start_ms, end_ms, short_name
		FROM arguments
		WHERE debate_id = ?
		ORDER BY position ASC
	`, debateID)
	if err != nil {
		return nil, fmt.Errorf("query arguments: %w", err)
	}
	defer rows.Close()

	out := []models.Argument{}
	for rows.Next() {
		var a models.Argument
		if err := rows.Scan(&a.ID, &a.DebateID, &a.Scheme, &a.Conclusion, &a.Text,
			&a.Speaker, &a.Start, &a.End, &a.ShortName); err != nil {
			return nil, fmt.Errorf("scan argument: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Premises, err = s.premises(ctx, out[i].ID); err != nil {
			return nil, err
		}
		if out[i].CriticalQuestions, err = s.criticalQuestions(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) relations(ctx context.Context, debateID int64) ([]models.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, debate_id, source_id, target_id, type, criterion, confidence, description
		FROM relations
		WHERE debate_id = ?
		ORDER BY id ASC
	`, debateID)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	out := []models.Relation{}
	for rows.Next() {
		var r models.Relation
		var desc sql.NullString
		if err := rows.Scan(&r.ID, &r.DebateID, &r.SourceID, &r.TargetID, &r.Type,
			&r.Criterion, &r.Confidence, &desc); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		r.Description = desc.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Premises returns the premises of one argument in their stated order.
func (s *Store) Premises(ctx context.Context, argumentID int64) ([]models.Premise, error) {
	if err := s.argumentExists(ctx, argumentID); err != nil {
		return nil, err
	}
	return s.premises(ctx, argumentID)
}

// CriticalQuestions returns the critical questions of one argument.
func (s *Store) CriticalQuestions(ctx context.Context, argumentID int64) ([]models.CriticalQuestion, error) {
	if err := s.argumentExists(ctx, argumentID); err != nil {
		return nil, err
	}
	return s.criticalQuestions(ctx, argumentID)
}

func (s *Store) premises(ctx context.Context, argumentID int64) ([]models.Premise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, argument_id, text FROM premises WHERE argument_id = ? ORDER BY position ASC`, argumentID)
	if err != nil {
		return nil, fmt.Errorf("query premises: %w", err)
	}
	defer rows.Close()

	out := []models.Premise{}
	for rows.Next() {
		var p models.Premise
		if err := rows.Scan(&p.ID, &p.ArgumentID, &p.Text); err != nil {
			return nil, fmt.Errorf("scan premise: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) criticalQuestions(ctx context.Context, argumentID int64) ([]models.CriticalQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, argument_id, text FROM critical_questions WHERE argument_id = ? ORDER BY position ASC`, argumentID)
	if err != nil {
		return nil, fmt.Errorf("query critical questions: %w", err)
	}
	defer rows.Close()

	out := []models.CriticalQuestion{}
	for rows.Next() {
		var q models.CriticalQuestion
		if err := rows.Scan(&q.ID, &q.ArgumentID, &q.Text); err != nil {
			return nil, fmt.Errorf("scan critical question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) argumentExists(ctx context.Context, argumentID int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM arguments WHERE id = ?`, argumentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("argument %d: %w", argumentID, ErrNotFound)
	}
	return err
}

// DeleteDebate removes a debate and, by cascade, everything it owns.
func (s *Store) DeleteDebate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM debates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete debate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("debate %d: %w", id, ErrNotFound)
	}
	s.logger.Info().Int64("debateId", id).Msg("Debate deleted")
	return nil
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
