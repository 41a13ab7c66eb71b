// Package publish holds the publishers that do not talk to a platform:
// an outbox file for manual posting and a log-only dry run.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
)

// Entry is one line of the outbox file.
type Entry struct {
	Platform  models.Platform `json:"platform"`
	TargetID  string          `json:"target_id"`
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	Comment   string          `json:"comment"`
	CreatedAt time.Time       `json:"created_at"`
}

// Outbox appends accepted comments to a JSON lines file so they can be
// posted by hand on platforms without a usable API.
type Outbox struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewOutbox(path string) (*Outbox, error) {
	if path == "" {
		return nil, fmt.Errorf("outbox path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create outbox directory: %w", err)
	}
	return &Outbox{path: path, now: time.Now}, nil
}

func (o *Outbox) Name() string { return "outbox" }

func (o *Outbox) Path() string { return o.path }

func (o *Outbox) Publish(ctx context.Context, t models.Target, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(Entry{
		Platform:  t.Platform,
		TargetID:  t.ID,
		URL:       t.URL,
		Title:     t.Title,
		Comment:   text,
		CreatedAt: o.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode outbox entry: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write outbox: %w", err)
	}
	return f.Close()
}

// Log only logs the comment. It is used for dry runs.
type Log struct {
	log logger.Logger
}

func NewLog(log logger.Logger) *Log {
	if log == nil {
		log = logger.NewNop()
	}
	return &Log{log: log}
}

func (l *Log) Name() string { return "dry-run" }

func (l *Log) Publish(_ context.Context, t models.Target, text string) error {
	l.log.Info("Dry run: comment not published",
		logger.String("platform", string(t.Platform)),
		logger.String("target", t.ID),
		logger.String("url", t.URL),
		logger.String("comment", text),
	)
	return nil
}
