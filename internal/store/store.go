package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store keeps one UserRecord per user identifier. Records are created on
// first contact and live for the lifetime of the store; there is no expiry
// or deletion, so growth is unbounded by design and callers must treat the
// debug listing accordingly.
type Store interface {
	// Get returns a snapshot of the record and whether it exists. A missing
	// user yields a zero record with the identifier filled in.
	Get(ctx context.Context, userID string) (UserRecord, bool, error)
	// Ensure creates an empty record if none exists and reports whether it
	// was created by this call.
	Ensure(ctx context.Context, userID string) (bool, error)
	// Record appends a turn entry for the fact and applies it to the record.
	Record(ctx context.Context, userID string, fact Fact) error
	// SetPosition moves the conversation cursor and logs the move, so the
	// turn log stays a complete audit trail of every position change.
	SetPosition(ctx context.Context, userID string, step Step, question string) error
	// All returns a snapshot of every record, keyed by user identifier.
	All(ctx context.Context) (map[string]UserRecord, error)
	Close() error
}

// Open returns a Postgres-backed store when a database URL is configured,
// otherwise the in-memory store the service was designed around.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewMemoryStore(), nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return NewPostgresStore(db), nil
}
