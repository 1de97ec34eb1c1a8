package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
)

// SessionRepository provides access to the workout session log.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// ListOptions filters List results. Zero values match everything.
type ListOptions struct {
	Exercise exercise.Type
	Limit    int
}

// ExerciseTotal aggregates every logged session of one exercise.
type ExerciseTotal struct {
	Exercise     exercise.Type `json:"exercise"`
	Sessions     int           `json:"sessions"`
	Reps         int           `json:"reps"`
	AvgFormScore float64       `json:"avg_form_score"`
}

// Create inserts a finished session and its corrections.
func (r *SessionRepository) Create(rec *session.Record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, exercise, origin, started_at, ended_at, frames, degraded_frames, reps, avg_form_score, best_grade)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Exercise), string(rec.Origin), rec.StartedAt.UTC(), rec.EndedAt.UTC(),
		rec.Frames, rec.DegradedFrames, rec.Reps, rec.AvgFormScore, string(rec.BestGrade),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, c := range rec.Corrections {
		if _, err := tx.Exec(
			`INSERT INTO session_corrections (session_id, position, text, count) VALUES (?, ?, ?, ?)`,
			rec.ID, i, c.Text, c.Count,
		); err != nil {
			return fmt.Errorf("insert correction: %w", err)
		}
	}

	return tx.Commit()
}

const sessionColumns = `id, exercise, origin, started_at, ended_at, frames, degraded_frames, reps, avg_form_score, best_grade`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Record, error) {
	rec := &session.Record{}
	var ex, origin, grade string

	err := row.Scan(&rec.ID, &ex, &origin, &rec.StartedAt, &rec.EndedAt,
		&rec.Frames, &rec.DegradedFrames, &rec.Reps, &rec.AvgFormScore, &grade)
	if err != nil {
		return nil, err
	}

	rec.Exercise = exercise.Type(ex)
	rec.Origin = session.Origin(origin)
	rec.BestGrade = analysis.Grade(grade)
	rec.Corrections = []session.CorrectionCount{}
	return rec, nil
}

// GetByID retrieves a session and its corrections.
func (r *SessionRepository) GetByID(id string) (*session.Record, error) {
	rec, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT text, count FROM session_corrections WHERE session_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c session.CorrectionCount
		if err := rows.Scan(&c.Text, &c.Count); err != nil {
			return nil, err
		}
		rec.Corrections = append(rec.Corrections, c)
	}

	return rec, rows.Err()
}

// List retrieves sessions, newest first. Corrections are not loaded.
func (r *SessionRepository) List(opts ListOptions) ([]*session.Record, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if opts.Exercise != "" {
		query += ` WHERE exercise = ?`
		args = append(args, string(opts.Exercise))
	}
	query += ` ORDER BY started_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*session.Record
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Totals aggregates the log per exercise, ordered by exercise name.
func (r *SessionRepository) Totals() ([]ExerciseTotal, error) {
	rows, err := r.db.Query(
		`SELECT exercise, COUNT(*), COALESCE(SUM(reps), 0), COALESCE(AVG(avg_form_score), 0)
		 FROM sessions GROUP BY exercise ORDER BY exercise`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExerciseTotal
	for rows.Next() {
		var t ExerciseTotal
		var ex string
		if err := rows.Scan(&ex, &t.Sessions, &t.Reps, &t.AvgFormScore); err != nil {
			return nil, err
		}
		t.Exercise = exercise.Type(ex)
		out = append(out, t)
	}

	return out, rows.Err()
}

// Delete removes a session and its corrections.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
