package domains

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thinkscotty/outreach/internal/models"
)

func TestCleanKeyword(t *testing.T) {
	tests := map[string]string{
		`"Keyword Research"`:   "keywordresearch",
		"  best-SEO tools  ":   "best-seotools",
		"--leading-trailing--": "leading-trailing",
		"café & co.":           "cafco",
		`""`:                   "",
		"100% free!":           "100free",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanKeyword(in), in)
	}
}

func TestReadKeywords_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.csv")
	content := "Keyword,Volume\n\"keyword research\",100\n\nseo tools,50\n\"Keyword Research\",10\n,5\n\"!!!\",1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadKeywords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"keywordresearch", "seotools"}, got)
}

func TestReadKeywords_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.xlsx")
	f := excelize.NewFile()
	rows := []string{"keyword", "serp checker", "", "rank tracker"}
	for i, v := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := ReadKeywords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"serpchecker", "ranktracker"}, got)
}

func TestReadKeywords_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("keyword\n\n"), 0o644))

	_, err := ReadKeywords(path)
	require.ErrorIs(t, err, ErrNoKeywords)

	_, err = ReadKeywords(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

type fakeResolver map[string]error

func (f fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	err, ok := f[host]
	if !ok {
		return []string{"93.184.216.34"}, nil
	}
	return nil, err
}

func TestDNSChecker(t *testing.T) {
	r := fakeResolver{
		"free.com":  &net.DNSError{Err: "no such host", Name: "free.com", IsNotFound: true},
		"flaky.com": &net.DNSError{Err: "server misbehaving", Name: "flaky.com", IsTemporary: true},
	}
	c := NewDNSChecker(r, time.Second)
	ctx := context.Background()

	assert.Equal(t, models.DomainTaken, c.Check(ctx, "google.com").Status)
	assert.Equal(t, models.DomainAvailable, c.Check(ctx, "free.com").Status)

	v := c.Check(ctx, "flaky.com")
	assert.Equal(t, models.DomainUncertain, v.Status)
	assert.Error(t, v.Err)
	assert.Equal(t, "dns", c.Method())
}

func TestClassifyWhois(t *testing.T) {
	taken := `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2026-08-13T04:00:00Z
`
	v := ClassifyWhois(taken)
	assert.Equal(t, models.DomainTaken, v.Status)
	assert.Equal(t, "2026-08-13T04:00:00Z", v.ExpiryDate)

	assert.Equal(t, models.DomainAvailable, ClassifyWhois(`No match for "SOMETHINGFREE123.COM".`).Status)
	assert.Equal(t, models.DomainAvailable, ClassifyWhois("Domain Name: x.io\nStatus: AVAILABLE").Status)

	v = ClassifyWhois("% rate limit exceeded, try again later")
	assert.Equal(t, models.DomainUncertain, v.Status)
	assert.Error(t, v.Err)
}

func TestWhoisChecker_QueryError(t *testing.T) {
	c := NewWhoisChecker(func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}, time.Second)
	v := c.Check(context.Background(), "x.com")
	assert.Equal(t, models.DomainUncertain, v.Status)
	assert.Equal(t, "whois", c.Method())
}

type memStore struct{ saved []models.DomainCheck }

func (m *memStore) SaveDomainCheck(_ context.Context, c *models.DomainCheck) error {
	m.saved = append(m.saved, *c)
	return nil
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	checker := NewWhoisChecker(func(_ context.Context, domain string) (string, error) {
		switch domain {
		case "freeone.com":
			return "No match for domain", nil
		case "broken.com":
			return "", errors.New("timeout")
		default:
			return "Domain Name: " + domain + "\nRegistrar: Someone", nil
		}
	}, time.Second)
	store := &memStore{}

	cfg := DefaultConfig()
	cfg.Method = "whois"
	cfg.Pause = 0
	cfg.OutputDir = dir

	sum, err := NewRunner(cfg, checker, store, nil, nil).Run(context.Background(), []string{"freeone", "google", "broken", "!!!"})
	require.NoError(t, err)

	assert.Equal(t, []string{"freeone.com"}, sum.Available)
	assert.Equal(t, []string{"google.com"}, sum.Taken)
	assert.Equal(t, []string{"broken.com"}, sum.Uncertain)
	assert.Equal(t, 3, sum.Total())
	require.Len(t, store.saved, 3)
	assert.Equal(t, "timeout", store.saved[2].Error)

	available, err := os.ReadFile(filepath.Join(dir, AvailableFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(available), "IMPORTANT: Always verify"))
	assert.True(t, strings.HasSuffix(string(available), "freeone.com\n"))

	taken, err := os.ReadFile(filepath.Join(dir, TakenFile))
	require.NoError(t, err)
	assert.Equal(t, "google.com\n", string(taken))

	var buf bytes.Buffer
	RenderSummary(&buf, sum)
	assert.Contains(t, buf.String(), "uncertain")
	assert.Contains(t, buf.String(), TakenFile)
}

func TestRunner_CancelWritesPartial(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	checker := NewWhoisChecker(func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "No match", nil
	}, time.Second)

	cfg := DefaultConfig()
	cfg.Pause = 0
	cfg.OutputDir = dir

	sum, err := NewRunner(cfg, checker, nil, nil, nil).Run(ctx, []string{"a1", "b2", "c3"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sum.Available, "a check finished after cancellation is discarded")
	_, statErr := os.Stat(filepath.Join(dir, UncertainFile))
	assert.NoError(t, statErr)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Method = "ping"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TLD = "."
	assert.Error(t, cfg.Validate())

	_, err := NewChecker(Config{Method: "ping"})
	assert.Error(t, err)
}
