package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/database"
	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
)

var (
	post  = models.Target{Platform: models.PlatformReddit, ID: "t3_1", URL: "https://reddit.com/1"}
	video = models.Target{Platform: models.PlatformYouTube, ID: "t3_1"}
)

// exercise runs the shared contract against a tracker.
func exercise(t *testing.T, tr Tracker) {
	t.Helper()
	ctx := context.Background()

	seen, err := tr.Seen(ctx, post)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, tr.Mark(ctx, post, "accepted"))

	seen, err = tr.Seen(ctx, post)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = tr.Seen(ctx, video)
	require.NoError(t, err)
	assert.False(t, seen, "same id on another platform is a different target")
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer db.Close()
	exercise(t, NewSQLite(db))
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tr := NewRedisWithClient(client, "test", time.Hour, logger.NewNop())
	defer tr.Close()

	exercise(t, tr)

	assert.True(t, mr.Exists("test:processed:reddit:t3_1"))
	v, err := mr.Get("test:processed:reddit:t3_1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", v)

	mr.FastForward(2 * time.Hour)
	seen, err := tr.Seen(context.Background(), post)
	require.NoError(t, err)
	assert.False(t, seen, "entries expire after the ttl")
}

func TestRedis_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisConfig{Address: addr}, nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Backend: "memory"}.Validate())
	assert.Error(t, Config{Backend: "redis"}.Validate())
	assert.NoError(t, Config{Backend: "redis", Redis: RedisConfig{Address: "localhost:6379"}}.Validate())
	assert.Error(t, Config{Backend: "etcd"}.Validate())
}
