package database

import (
	"context"
	"fmt"

	"github.com/thinkscotty/outreach/internal/models"
)

// LogGeneration records one selection cycle.
func (db *DB) LogGeneration(ctx context.Context, g *models.GenerationLog) error {
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO generation_log (run_id, platform, target_id, state, attempts, generation_failures,
		                            scoring_failures, best_score, tokens_used, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.RunID, string(g.Platform), g.TargetID, g.State, g.Attempts, g.GenerationFailures,
		g.ScoringFailures, g.BestScore, g.TokensUsed, g.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	g.ID, err = result.LastInsertId()
	return err
}

// RecentGenerations returns the N most recent cycles.
func (db *DB) RecentGenerations(ctx context.Context, limit int) ([]models.GenerationLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, run_id, platform, target_id, state, attempts, generation_failures,
		       scoring_failures, best_score, tokens_used, error_message, created_at
		FROM generation_log
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.GenerationLog
	for rows.Next() {
		var g models.GenerationLog
		var platform, createdAt string
		if err := rows.Scan(&g.ID, &g.RunID, &platform, &g.TargetID, &g.State, &g.Attempts,
			&g.GenerationFailures, &g.ScoringFailures, &g.BestScore, &g.TokensUsed,
			&g.ErrorMessage, &createdAt); err != nil {
			return nil, err
		}
		g.Platform = models.Platform(platform)
		g.CreatedAt = parseTime(createdAt)
		logs = append(logs, g)
	}
	return logs, rows.Err()
}

// CleanOldGenerations removes cycle records older than the given number of days.
func (db *DB) CleanOldGenerations(ctx context.Context, days int) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM generation_log WHERE created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	return err
}
