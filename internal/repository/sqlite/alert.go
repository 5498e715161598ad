package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/errors"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) alert.Repository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return errors.DatabaseError("Failed to encode alert payload", err)
	}
	results, err := json.Marshal(a.ChannelResults)
	if err != nil {
		return errors.DatabaseError("Failed to encode channel results", err)
	}

	query := `
		INSERT INTO alerts (id, source_kind, severity, title, message, dedup_key, payload, channel_results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET channel_results = excluded.channel_results
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.SourceKind, a.Severity, a.Title, a.Message, a.DedupKey,
		string(payload), string(results), a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.DatabaseError("Failed to save alert", err)
	}
	return nil
}

func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]*alert.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, source_kind, severity, title, message, dedup_key, payload, channel_results, created_at
		FROM alerts ORDER BY created_at DESC LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list alerts", err)
	}
	defer rows.Close()

	alerts := make([]*alert.Alert, 0, limit)
	for rows.Next() {
		var a alert.Alert
		var payload, results, createdAt string
		err := rows.Scan(&a.ID, &a.SourceKind, &a.Severity, &a.Title, &a.Message, &a.DedupKey, &payload, &results, &createdAt)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan alert", err)
		}
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
				return nil, errors.DatabaseError("Failed to decode alert payload", err)
			}
		}
		if results != "" && results != "null" {
			if err := json.Unmarshal([]byte(results), &a.ChannelResults); err != nil {
				return nil, errors.DatabaseError("Failed to decode channel results", err)
			}
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
