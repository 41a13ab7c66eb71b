package database

import (
	"context"

	"github.com/thinkscotty/outreach/internal/models"
)

func (db *DB) GetStats(ctx context.Context) (models.Stats, error) {
	s := models.Stats{CommentsByPlatform: make(map[string]int)}

	rows, err := db.conn.QueryContext(ctx, `SELECT platform, COUNT(*) FROM comments GROUP BY platform`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.CommentsByPlatform[platform] = n
		s.TotalComments += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_targets`).Scan(&s.ProcessedTargets)
	db.conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(state = 'accepted'), 0), COALESCE(SUM(tokens_used), 0) FROM generation_log`).
		Scan(&s.Cycles, &s.AcceptedCycles, &s.TotalTokensUsed)
	db.conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(status = 'available'), 0) FROM domain_checks`).
		Scan(&s.DomainChecks, &s.AvailableDomains)

	size, _ := db.DatabaseSizeBytes()
	s.DatabaseSizeBytes = size

	return s, nil
}
