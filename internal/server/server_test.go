package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thinkscotty/outreach/internal/config"
	"github.com/thinkscotty/outreach/internal/metrics"
	"github.com/thinkscotty/outreach/internal/models"
)

type fakeStore struct {
	comments     []models.Comment
	lastPlatform models.Platform
	lastLimit    int
	lastStatus   models.DomainStatus
	err          error
}

func (f *fakeStore) ListComments(_ context.Context, p models.Platform, limit int) ([]models.Comment, error) {
	f.lastPlatform, f.lastLimit = p, limit
	return f.comments, f.err
}

func (f *fakeStore) RecentGenerations(_ context.Context, limit int) ([]models.GenerationLog, error) {
	f.lastLimit = limit
	return []models.GenerationLog{{RunID: "r1", State: "accepted", BestScore: 70}}, f.err
}

func (f *fakeStore) ListDomainChecks(_ context.Context, status models.DomainStatus, limit int) ([]models.DomainCheck, error) {
	f.lastStatus, f.lastLimit = status, limit
	return nil, f.err
}

func (f *fakeStore) GetStats(context.Context) (models.Stats, error) {
	return models.Stats{TotalComments: 3, CommentsByPlatform: map[string]int{"reddit": 3}}, f.err
}

const testKey = "test-key"

func newTestServer(t *testing.T, store Store) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testKey), bcrypt.MinCost)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	s := New(config.ServerConfig{APIKeyHash: string(hash)}, store, reg, nil, "v1.2.3")
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func get(t *testing.T, url, key string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealthz_IsPublic(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	resp, body := get(t, srv.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "v1.2.3", out["version"])
}

func TestMetrics_ServesRegistry(t *testing.T) {
	srv, reg := newTestServer(t, &fakeStore{})
	m := metrics.New(reg)
	m.DomainChecked("dns", "available")

	resp, body := get(t, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "outreach_domains_checks_total")
}

func TestAPI_RequiresKey(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	resp, _ := get(t, srv.URL+"/api/v1/stats", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/v1/stats", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := get(t, srv.URL+"/api/v1/stats", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats models.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 3, stats.TotalComments)
}

func TestAPI_DisabledWithoutHash(t *testing.T) {
	s := New(config.ServerConfig{}, &fakeStore{}, nil, nil, "dev")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/api/v1/comments", "anything")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	resp, _ := get(t, srv.URL+"/healthz", "")
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestAPI_UnauthorizedSetsChallenge(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	resp, _ := get(t, srv.URL+"/api/v1/comments", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
}

func TestRecoverer(t *testing.T) {
	s := New(config.ServerConfig{}, &fakeStore{}, nil, nil, "dev")
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIComments(t *testing.T) {
	store := &fakeStore{comments: []models.Comment{{ID: 1, Platform: models.PlatformReddit, Content: "hi"}}}
	srv, _ := newTestServer(t, store)

	resp, body := get(t, srv.URL+"/api/v1/comments?platform=reddit&limit=2", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.PlatformReddit, store.lastPlatform)
	assert.Equal(t, 2, store.lastLimit)

	var out struct {
		Comments []models.Comment `json:"comments"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "hi", out.Comments[0].Content)

	resp, _ = get(t, srv.URL+"/api/v1/comments?platform=myspace", testKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	get(t, srv.URL+"/api/v1/comments?limit=100000", testKey)
	assert.Equal(t, maxLimit, store.lastLimit)
}

func TestAPIDomains(t *testing.T) {
	store := &fakeStore{}
	srv, _ := newTestServer(t, store)

	resp, body := get(t, srv.URL+"/api/v1/domains?status=available", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.DomainAvailable, store.lastStatus)
	assert.JSONEq(t, `{"domains":[],"count":0}`, string(body))

	resp, _ = get(t, srv.URL+"/api/v1/domains?status=maybe", testKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIGenerations(t *testing.T) {
	store := &fakeStore{}
	srv, _ := newTestServer(t, store)

	resp, _ := get(t, srv.URL+"/api/v1/generations", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, defaultLimit, store.lastLimit)
}

func TestAPI_StoreError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{err: errors.New("db locked")})

	resp, body := get(t, srv.URL+"/api/v1/stats", testKey)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "Failed to get stats")
}
