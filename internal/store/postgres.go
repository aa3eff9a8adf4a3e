package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists user records in PostgreSQL. It implements the same
// contract as MemoryStore; turn entries go to turn_log and the top-level
// fields live on the users row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection. The caller owns the connection
// lifecycle up to Close.
func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Get(ctx context.Context, userID string) (UserRecord, bool, error) {
	rec, ok, err := s.loadUser(ctx, s.db, userID, false)
	if err != nil || !ok {
		return rec, ok, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, value, details, created_at
         FROM turn_log WHERE user_id = $1
         ORDER BY created_at ASC`, userID)
	if err != nil {
		return UserRecord{}, false, fmt.Errorf("query turn log: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e TurnEntry
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.Key, &e.Value, &detailsJSON, &e.CreatedAt); err != nil {
			return UserRecord{}, false, fmt.Errorf("scan turn entry: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return UserRecord{}, false, fmt.Errorf("unmarshal turn details: %w", err)
			}
		}
		rec.TurnLog = append(rec.TurnLog, e)
	}
	if err := rows.Err(); err != nil {
		return UserRecord{}, false, err
	}
	return rec, true, nil
}

func (s *PostgresStore) Ensure(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) Record(ctx context.Context, userID string, fact Fact) error {
	return s.mutate(ctx, userID, func(rec *UserRecord) {
		rec.apply(fact)
	})
}

func (s *PostgresStore) SetPosition(ctx context.Context, userID string, step Step, question string) error {
	return s.mutate(ctx, userID, func(rec *UserRecord) {
		rec.apply(Fact{Key: "current_question", Value: question})
		rec.apply(Fact{Key: "current_step", Value: string(step)})
		rec.CurrentStep = step
		rec.CurrentQuestion = question
	})
}

func (s *PostgresStore) All(ctx context.Context) (map[string]UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]UserRecord, len(ids))
	for _, id := range ids {
		rec, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// mutate runs a read-modify-write cycle for one user inside a transaction.
// The row lock serializes concurrent writes to the same record.
func (s *PostgresStore) mutate(ctx context.Context, userID string, fn func(*UserRecord)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	rec, _, err := s.loadUser(ctx, tx, userID, true)
	if err != nil {
		return err
	}

	fn(&rec)

	for _, e := range rec.TurnLog {
		var detailsJSON []byte
		if e.Details != nil {
			if detailsJSON, err = json.Marshal(e.Details); err != nil {
				return fmt.Errorf("marshal turn details: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turn_log (id, user_id, key, value, details, created_at)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, userID, e.Key, e.Value, detailsJSON, e.CreatedAt); err != nil {
			return fmt.Errorf("insert turn entry: %w", err)
		}
	}

	symptomsJSON, err := json.Marshal(rec.Symptoms)
	if err != nil {
		return fmt.Errorf("marshal symptoms: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET symptoms = $2, previous_history = $3, medication_history = $4,
             additional_symptoms = $5, diagnosis = $6, critical = $7,
             current_step = $8, current_question = $9
         WHERE user_id = $1`,
		userID, symptomsJSON, rec.PreviousHistory, rec.MedicationHistory,
		rec.AdditionalSymptoms, rec.Diagnosis, rec.Critical,
		string(rec.CurrentStep), rec.CurrentQuestion); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadUser reads the users row without the turn log. With forUpdate set the
// row stays locked for the enclosing transaction; mutate relies on starting
// from an empty TurnLog so apply only accumulates the new entries to insert.
func (s *PostgresStore) loadUser(ctx context.Context, q queryer, userID string, forUpdate bool) (UserRecord, bool, error) {
	query := `SELECT user_id, symptoms, previous_history, medication_history,
                 additional_symptoms, diagnosis, critical, current_step, current_question
             FROM users WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var rec UserRecord
	var symptomsJSON []byte
	var step string
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID, &symptomsJSON, &rec.PreviousHistory, &rec.MedicationHistory,
		&rec.AdditionalSymptoms, &rec.Diagnosis, &rec.Critical, &step, &rec.CurrentQuestion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserRecord{UserID: userID}, false, nil
		}
		return UserRecord{}, false, fmt.Errorf("query user: %w", err)
	}
	rec.CurrentStep = Step(step)
	if len(symptomsJSON) > 0 {
		if err := json.Unmarshal(symptomsJSON, &rec.Symptoms); err != nil {
			return UserRecord{}, false, fmt.Errorf("unmarshal symptoms: %w", err)
		}
	}
	return rec, true, nil
}
