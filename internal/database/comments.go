package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/similarity"
)

func (db *DB) CreateComment(ctx context.Context, c *models.Comment) error {
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO comments (run_id, platform, target_id, target_url, content, trigrams, score, ai_provider, ai_model, publisher)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, string(c.Platform), c.TargetID, c.TargetURL, c.Content, c.Trigrams,
		c.Score, c.AIProvider, c.AIModel, c.Publisher)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// ListComments returns the newest comments, optionally for one platform.
func (db *DB) ListComments(ctx context.Context, p models.Platform, limit int) ([]models.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, run_id, platform, target_id, target_url, content, trigrams, score,
		       ai_provider, ai_model, publisher, created_at
		FROM comments
		WHERE ? = '' OR platform = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, string(p), string(p), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

// CommentTrigrams returns stored n-grams of the newest comments of a platform.
func (db *DB) CommentTrigrams(ctx context.Context, p models.Platform, limit int) ([]similarity.StoredTrigrams, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, trigrams FROM comments
		WHERE platform = ? AND trigrams != ''
		ORDER BY id DESC LIMIT ?`, string(p), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []similarity.StoredTrigrams
	for rows.Next() {
		var st similarity.StoredTrigrams
		if err := rows.Scan(&st.ID, &st.Trigrams); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var platform, createdAt string
		if err := rows.Scan(&c.ID, &c.RunID, &platform, &c.TargetID, &c.TargetURL, &c.Content,
			&c.Trigrams, &c.Score, &c.AIProvider, &c.AIModel, &c.Publisher, &createdAt); err != nil {
			return nil, err
		}
		c.Platform = models.Platform(platform)
		c.CreatedAt = parseTime(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
