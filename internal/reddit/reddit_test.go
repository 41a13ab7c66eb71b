package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/models"
)

func testClient(srv *httptest.Server, mutate func(*Config)) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.OAuthURL = srv.URL
	cfg.RequestsPerMinute = 60000
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, nil)
}

const searchListing = `{"data":{"children":[
 {"kind":"t3","data":{"name":"t3_aaa","title":"Best keyword research tool?","selftext":"Looking for something cheap","is_self":true,"permalink":"/r/SEO/comments/aaa/best/","subreddit":"SEO","author":"alice"}},
 {"kind":"t3","data":{"name":"t3_bbb","title":"Locked thread","selftext":"","is_self":true,"locked":true,"permalink":"/r/SEO/comments/bbb/x/","subreddit":"SEO","author":"bob"}},
 {"kind":"t3","data":{"name":"t3_aaa","title":"dup","permalink":"/r/SEO/comments/aaa/best/","subreddit":"SEO"}}
]}}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "keyword tool", r.URL.Query().Get("q"))
		assert.Equal(t, "new", r.URL.Query().Get("sort"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, searchListing)
	}))
	defer srv.Close()

	targets, err := testClient(srv, nil).Search(context.Background(), "keyword tool")
	require.NoError(t, err)
	require.Len(t, targets, 1)

	got := targets[0]
	assert.Equal(t, models.PlatformReddit, got.Platform)
	assert.Equal(t, "t3_aaa", got.ID)
	assert.Equal(t, "https://www.reddit.com/r/SEO/comments/aaa/best/", got.URL)
	assert.Equal(t, "SEO", got.Channel)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, "keyword tool", got.Query)
}

func TestSearch_Subreddits(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
		fmt.Fprint(w, `{"data":{"children":[]}}`)
	}))
	defer srv.Close()

	c := testClient(srv, func(cfg *Config) {
		cfg.Subreddits = []string{"r/SEO", "https://www.reddit.com/r/bigseo/", "juststart"}
	})
	_, err := c.Search(context.Background(), "serp")
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/SEO/search.json", "/r/bigseo/search.json", "/r/juststart/search.json"}, paths)
}

func TestSearch_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, searchListing)
	}))
	defer srv.Close()

	targets, err := testClient(srv, nil).Search(context.Background(), "seo")
	require.NoError(t, err)
	assert.Len(t, targets, 1)
	assert.Equal(t, 2, calls)
}

func TestSearch_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv, nil).Search(context.Background(), "seo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private")
}

const commentTree = `[
 {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"author":"alice"}}]}},
 {"kind":"Listing","data":{"children":[
  {"kind":"t1","data":{"author":"carol","body":"hi","replies":""}},
  {"kind":"t1","data":{"author":"dave","body":"hey","replies":{"kind":"Listing","data":{"children":[
    {"kind":"t1","data":{"author":"KwrdsBot","body":"nested","replies":""}}
  ]}}}},
  {"kind":"more","data":{}}
 ]}}
]`

func TestHasCommented(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/aaa.json", r.URL.Path)
		fmt.Fprint(w, commentTree)
	}))
	defer srv.Close()

	target := models.Target{Platform: models.PlatformReddit, ID: "t3_aaa"}

	found, err := testClient(srv, func(cfg *Config) { cfg.Username = "kwrdsbot" }).HasCommented(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, found, "nested reply by the account should be found case-insensitively")

	found, err = testClient(srv, func(cfg *Config) { cfg.Username = "someone" }).HasCommented(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHasCommented_NoUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	found, err := testClient(srv, nil).HasCommented(context.Background(), models.Target{ID: "t3_aaa"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/comment", r.URL.Path)
		assert.Equal(t, "bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_aaa", r.PostForm.Get("thing_id"))
		assert.Equal(t, "nice post", r.PostForm.Get("text"))
		fmt.Fprint(w, `{"json":{"errors":[]}}`)
	}))
	defer srv.Close()

	c := testClient(srv, func(cfg *Config) { cfg.AccessToken = "tok" })
	require.NoError(t, c.Publish(context.Background(), models.Target{ID: "t3_aaa"}, "nice post"))
}

func TestPublish_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]]}}`)
	}))
	defer srv.Close()

	err := testClient(srv, nil).Publish(context.Background(), models.Target{ID: "t3_aaa"}, "x")
	require.Error(t, err, "missing token")

	c := testClient(srv, func(cfg *Config) { cfg.AccessToken = "tok" })
	err = c.Publish(context.Background(), models.Target{ID: "t3_aaa"}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATELIMIT")
}

func TestPublish_DoesNotRetryAfterServerError(t *testing.T) {
	var stored []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		stored = append(stored, r.PostForm.Get("text"))
		if len(stored) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"json":{"errors":[]}}`)
	}))
	defer srv.Close()

	c := testClient(srv, func(cfg *Config) { cfg.AccessToken = "tok" })
	err := c.Publish(context.Background(), models.Target{ID: "t3_aaa"}, "nice post")
	require.Error(t, err)
	assert.Equal(t, []string{"nice post"}, stored)
}

func TestExtractSubreddit(t *testing.T) {
	tests := map[string]string{
		"r/SEO":                               "SEO",
		"/r/bigseo":                           "bigseo",
		"https://www.reddit.com/r/juststart/": "juststart",
		"marketing":                           "marketing",
	}
	for in, want := range tests {
		got, err := extractSubreddit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := extractSubreddit("not a subreddit!")
	assert.Error(t, err)
}
