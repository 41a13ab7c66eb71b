package database

import (
	"context"
	"fmt"

	"github.com/thinkscotty/outreach/internal/models"
)

func (db *DB) SaveDomainCheck(ctx context.Context, c *models.DomainCheck) error {
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO domain_checks (keyword, domain, status, method, expiry_date, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Keyword, c.Domain, string(c.Status), c.Method, c.ExpiryDate, c.Error)
	if err != nil {
		return fmt.Errorf("insert domain check %s: %w", c.Domain, err)
	}
	c.ID, err = result.LastInsertId()
	return err
}

// ListDomainChecks returns the newest checks, optionally filtered by status.
func (db *DB) ListDomainChecks(ctx context.Context, status models.DomainStatus, limit int) ([]models.DomainCheck, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, keyword, domain, status, method, expiry_date, error, checked_at
		FROM domain_checks
		WHERE ? = '' OR status = ?
		ORDER BY checked_at DESC, id DESC LIMIT ?`, string(status), string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DomainCheck
	for rows.Next() {
		var c models.DomainCheck
		var status, checkedAt string
		if err := rows.Scan(&c.ID, &c.Keyword, &c.Domain, &status, &c.Method, &c.ExpiryDate, &c.Error, &checkedAt); err != nil {
			return nil, err
		}
		c.Status = models.DomainStatus(status)
		c.CheckedAt = parseTime(checkedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
