package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/awstrack/awstrack/internal/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	source_kind     TEXT NOT NULL,
	severity        TEXT NOT NULL,
	title           TEXT NOT NULL,
	message         TEXT NOT NULL,
	dedup_key       TEXT NOT NULL,
	payload         TEXT,
	channel_results TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts (created_at DESC);

CREATE TABLE IF NOT EXISTS usage_snapshots (
	taken_at TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	metrics  TEXT NOT NULL,
	PRIMARY KEY (taken_at, user_id)
);

CREATE TABLE IF NOT EXISTS cost_snapshots (
	taken_at TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	costs    TEXT NOT NULL,
	PRIMARY KEY (taken_at, user_id)
);
`

// Open opens (and creates, if needed) the SQLite database at path and
// applies the schema. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.DatabaseError("Failed to open database", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent agents.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.DatabaseError("Failed to apply schema", err)
	}
	return db, nil
}
