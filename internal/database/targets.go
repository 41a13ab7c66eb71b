package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/thinkscotty/outreach/internal/models"
)

// MarkProcessed records a target as handled. Re-marking updates the outcome.
func (db *DB) MarkProcessed(ctx context.Context, p models.Platform, targetID, url, outcome string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO processed_targets (platform, target_id, url, outcome)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(platform, target_id) DO UPDATE SET outcome = excluded.outcome, processed_at = datetime('now')`,
		string(p), targetID, url, outcome)
	if err != nil {
		return fmt.Errorf("mark processed %s:%s: %w", p, targetID, err)
	}
	return nil
}

// IsProcessed reports whether a target has been handled before.
func (db *DB) IsProcessed(ctx context.Context, p models.Platform, targetID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM processed_targets WHERE platform = ? AND target_id = ?`,
		string(p), targetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed %s:%s: %w", p, targetID, err)
	}
	return true, nil
}

// ProcessedCount returns how many targets of a platform were handled;
// an empty platform counts all.
func (db *DB) ProcessedCount(ctx context.Context, p models.Platform) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_targets WHERE ? = '' OR platform = ?`,
		string(p), string(p)).Scan(&n)
	return n, err
}
