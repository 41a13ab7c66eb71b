package publish

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/models"
)

func TestOutbox_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outbox.jsonl")
	o, err := NewOutbox(path)
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o.now = func() time.Time { return fixed }

	ctx := context.Background()
	q := models.Target{Platform: models.PlatformQuora, ID: "https://www.quora.com/a", URL: "https://www.quora.com/a", Title: "A?"}
	require.NoError(t, o.Publish(ctx, q, "first"))
	require.NoError(t, o.Publish(ctx, q, "second"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Comment)
	assert.Equal(t, "second", entries[1].Comment)
	assert.Equal(t, models.PlatformQuora, entries[0].Platform)
	assert.True(t, fixed.Equal(entries[0].CreatedAt))
	assert.Equal(t, "outbox", o.Name())
}

func TestOutbox_RequiresPath(t *testing.T) {
	_, err := NewOutbox("")
	require.Error(t, err)
}

func TestOutbox_Cancelled(t *testing.T) {
	o, err := NewOutbox(filepath.Join(t.TempDir(), "o.jsonl"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, o.Publish(ctx, models.Target{}, "x"), context.Canceled)
}

func TestLog(t *testing.T) {
	l := NewLog(nil)
	assert.Equal(t, "dry-run", l.Name())
	require.NoError(t, l.Publish(context.Background(), models.Target{ID: "t3_x"}, "hello"))
}
