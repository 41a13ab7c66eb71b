package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scraper"
)

type fakeScraper struct {
	links   []string
	pages   map[string]*scraper.Page
	queries []string
}

func (f *fakeScraper) Search(_ context.Context, site, domain, query string) ([]string, error) {
	f.queries = append(f.queries, site+"|"+domain+"|"+query)
	return f.links, nil
}

func (f *fakeScraper) Fetch(_ context.Context, pageURL string, _ ...string) (*scraper.Page, error) {
	if p, ok := f.pages[pageURL]; ok {
		return p, nil
	}
	return nil, errors.New("blocked")
}

func TestActivityURN(t *testing.T) {
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://www.linkedin.com/posts/jane-doe_seo-tips-activity-7267886989482307585-AbCd", "urn:li:activity:7267886989482307585", true},
		{"https://www.linkedin.com/feed/update/urn:li:activity:7267886989482307585/", "urn:li:activity:7267886989482307585", true},
		{"https://www.linkedin.com/feed/update/urn%3Ali%3AugcPost%3A7267886989482307585", "urn:li:ugcPost:7267886989482307585", true},
		{"https://www.linkedin.com/in/jane-doe", "", false},
	}
	for _, tt := range tests {
		got, ok := ActivityURN(tt.link)
		assert.Equal(t, tt.ok, ok, tt.link)
		assert.Equal(t, tt.want, got, tt.link)
	}
}

func TestTitleFromURL(t *testing.T) {
	assert.Equal(t, "seo tips for 2026", titleFromURL("https://www.linkedin.com/posts/jane-doe_seo-tips-for-2026-activity-7267886989482307585-AbCd"))
}

func TestSearch(t *testing.T) {
	post := "https://www.linkedin.com/posts/jane_keyword-research-activity-1111111111111-x"
	blocked := "https://www.linkedin.com/posts/bob_serp-features-activity-2222222222222-y"
	fs := &fakeScraper{
		links: []string{post, "https://www.linkedin.com/in/jane", blocked, post},
		pages: map[string]*scraper.Page{
			post: {URL: post, Title: "Keyword research in practice", Text: "Here is how I do keyword research."},
		},
	}

	targets, err := New(Config{}, fs, nil).Search(context.Background(), `"keyword research"`)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, []string{`linkedin.com/posts|linkedin.com|"keyword research"`}, fs.queries)
	assert.Equal(t, "urn:li:activity:1111111111111", targets[0].ID)
	assert.Equal(t, "Keyword research in practice", targets[0].Title)
	assert.Equal(t, "Here is how I do keyword research.", targets[0].Body)
	assert.Equal(t, models.PlatformLinkedIn, targets[0].Platform)

	assert.Equal(t, "urn:li:activity:2222222222222", targets[1].ID)
	assert.Equal(t, "serp features", targets[1].Title)
	assert.Empty(t, targets[1].Body)
}

func testClient(srv *httptest.Server) *Client {
	cfg := DefaultConfig()
	cfg.APIURL = srv.URL
	cfg.AccessToken = "tok"
	cfg.ActorURN = "urn:li:organization:42"
	cfg.RequestsPerMinute = 60000
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	return New(cfg, &fakeScraper{}, nil)
}

func TestHasCommented(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/socialActions/urn:li:activity:1/comments", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		fmt.Fprint(w, `{"elements":[{"actor":"urn:li:person:9","message":{"text":"hi"}},{"actor":"urn:li:organization:42","message":{"text":"ours"}}]}`)
	}))
	defer srv.Close()

	found, err := testClient(srv).HasCommented(context.Background(), models.Target{ID: "urn:li:activity:1"})
	require.NoError(t, err)
	assert.True(t, found)
}

func TestHasCommented_WithoutCredentials(t *testing.T) {
	found, err := New(Config{}, &fakeScraper{}, nil).HasCommented(context.Background(), models.Target{ID: "urn:li:activity:1"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPublish(t *testing.T) {
	var got comment
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "202401", r.Header.Get("LinkedIn-Version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := testClient(srv).Publish(context.Background(), models.Target{ID: "urn:li:activity:1"}, "Solid list.")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:organization:42", got.Actor)
	assert.Equal(t, "urn:li:activity:1", got.Object)
	assert.Equal(t, "Solid list.", got.Message.Text)
}

func TestPublish_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Not enough permissions"}`)
	}))
	defer srv.Close()

	err := testClient(srv).Publish(context.Background(), models.Target{ID: "urn:li:activity:1"}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not enough permissions")
}

func TestPublish_DoesNotRetryAfterServerError(t *testing.T) {
	var stored []comment
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c comment
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		stored = append(stored, c)
		if len(stored) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := testClient(srv).Publish(context.Background(), models.Target{ID: "urn:li:activity:1"}, "Solid list.")
	require.Error(t, err)
	assert.Len(t, stored, 1)
}
