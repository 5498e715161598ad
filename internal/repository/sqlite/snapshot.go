package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/awstrack/awstrack/internal/domain/analytics"
	"github.com/awstrack/awstrack/internal/pkg/errors"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) analytics.SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) SaveUsage(ctx context.Context, takenAt time.Time, users []*analytics.UserMetricsSnapshot) error {
	return r.saveJSON(ctx, takenAt,
		"INSERT OR REPLACE INTO usage_snapshots (taken_at, user_id, metrics) VALUES (?, ?, ?)",
		len(users),
		func(i int) (string, interface{}) { return users[i].UserID, users[i] },
	)
}

func (r *SnapshotRepository) SaveCosts(ctx context.Context, takenAt time.Time, costs []*analytics.CostAttribution) error {
	return r.saveJSON(ctx, takenAt,
		"INSERT OR REPLACE INTO cost_snapshots (taken_at, user_id, costs) VALUES (?, ?, ?)",
		len(costs),
		func(i int) (string, interface{}) { return costs[i].UserID, costs[i] },
	)
}

// saveJSON writes one row per user inside a single transaction so a
// snapshot is either fully persisted or absent.
func (r *SnapshotRepository) saveJSON(ctx context.Context, takenAt time.Time, query string, n int, row func(i int) (string, interface{})) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin snapshot transaction", err)
	}
	defer tx.Rollback()

	ts := takenAt.UTC().Format(time.RFC3339)
	for i := 0; i < n; i++ {
		userID, v := row(i)
		body, err := json.Marshal(v)
		if err != nil {
			return errors.DatabaseError("Failed to encode snapshot row", err)
		}
		if _, err := tx.ExecContext(ctx, query, ts, userID, string(body)); err != nil {
			return errors.DatabaseError("Failed to save snapshot row", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit snapshot", err)
	}
	return nil
}

// LatestUsage returns the rows of the most recent usage snapshot.
// An empty store yields an empty slice, not an error.
func (r *SnapshotRepository) LatestUsage(ctx context.Context) ([]*analytics.UserMetricsSnapshot, error) {
	query := `
		SELECT metrics FROM usage_snapshots
		WHERE taken_at = (SELECT MAX(taken_at) FROM usage_snapshots)
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load usage snapshot", err)
	}
	defer rows.Close()

	var users []*analytics.UserMetricsSnapshot
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.DatabaseError("Failed to scan usage snapshot", err)
		}
		var u analytics.UserMetricsSnapshot
		if err := json.Unmarshal([]byte(body), &u); err != nil {
			return nil, errors.DatabaseError("Failed to decode usage snapshot", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
