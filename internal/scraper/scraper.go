// Package scraper finds pages through a search engine results page and
// extracts readable text from them.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/thinkscotty/outreach/internal/fallback"
	"github.com/thinkscotty/outreach/internal/logger"
)

// ErrNoContent is returned when no extractor produced enough text.
var ErrNoContent = errors.New("insufficient content")

// Config configures the scraper.
type Config struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	// SearchURL is the results page queried with ?q=.
	SearchURL       string `yaml:"search_url"`
	ResultsPerQuery int    `yaml:"results_per_query"`
	// MinTextLength is the shortest extraction accepted from one extractor.
	MinTextLength int `yaml:"min_text_length"`
	MaxTextLength int `yaml:"max_text_length"`
}

func DefaultConfig() Config {
	return Config{
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
		Timeout:         30 * time.Second,
		SearchURL:       "https://www.google.com/search",
		ResultsPerQuery: 10,
		MinTextLength:   80,
		MaxTextLength:   20000,
	}
}

// Page is the readable content of a fetched URL.
type Page struct {
	URL   string
	Title string
	Text  string
	// Extractor names what produced Text.
	Extractor string
}

// Scraper fetches result pages and articles with colly.
type Scraper struct {
	cfg Config
	log logger.Logger
}

func New(cfg Config, log logger.Logger) *Scraper {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = def.SearchURL
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = def.ResultsPerQuery
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = def.MinTextLength
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = def.MaxTextLength
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scraper{cfg: cfg, log: log}
}

// Search queries the results page for "site:<site> <query>" and returns
// result URLs whose host belongs to domain, in page order.
func (s *Scraper) Search(ctx context.Context, site, domain, query string) ([]string, error) {
	q := query
	if site != "" {
		q = "site:" + site + " " + query
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("num", fmt.Sprint(s.cfg.ResultsPerQuery))
	params.Set("hl", "en")

	body, err := s.get(ctx, s.cfg.SearchURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	links, err := ParseResults(strings.NewReader(string(body)), domain)
	if err != nil {
		return nil, fmt.Errorf("parse results for %q: %w", q, err)
	}
	if len(links) > s.cfg.ResultsPerQuery {
		links = links[:s.cfg.ResultsPerQuery]
	}
	s.log.Debug("Search results parsed", logger.String("query", q), logger.Int("links", len(links)))
	return links, nil
}

// ParseResults extracts outbound links from a results page. Redirect links
// of the form /url?q=<target> are unwrapped. Only links whose host equals
// domain or is a subdomain of it are kept, de-duplicated in page order.
// An empty domain keeps every absolute http(s) link.
func ParseResults(r io.Reader, domain string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := unwrapRedirect(href)
		if link == "" || seen[link] {
			return
		}
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		if domain != "" && !matchesDomain(u.Hostname(), domain) {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links, nil
}

func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "/url?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	return u.Query().Get("url")
}

func matchesDomain(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Fetch downloads pageURL and extracts its text. Readability runs first;
// when it yields too little the selectors are tried in order.
func (s *Scraper) Fetch(ctx context.Context, pageURL string, selectors ...string) (*Page, error) {
	body, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	page, err := s.Extract(string(body), pageURL, selectors...)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return page, nil
}

// Select downloads pageURL and returns the cleaned text of every element
// matching selector.
func (s *Scraper) Select(ctx context.Context, pageURL, selector string) ([]string, error) {
	body, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if t := cleanText(sel.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out, nil
}

// Extract runs the extractor chain over an already downloaded document.
func (s *Scraper) Extract(document, pageURL string, selectors ...string) (*Page, error) {
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}

	type extractor struct {
		name string
		fn   func() (title, text string, err error)
	}
	extractors := []extractor{
		{"readability", func() (string, string, error) { return extractReadable(document, pageURL) }},
	}
	for _, sel := range selectors {
		extractors = append(extractors, extractor{"selector:" + sel, func() (string, string, error) {
			return extractSelector(document, sel)
		}})
	}

	var page *Page
	_, err := fallback.First(context.Background(), extractors, func(_ context.Context, e extractor) error {
		title, text, err := e.fn()
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		if len(text) < s.cfg.MinTextLength {
			return fmt.Errorf("%s: %w (%d chars)", e.name, ErrNoContent, len(text))
		}
		if len(text) > s.cfg.MaxTextLength {
			text = text[:s.cfg.MaxTextLength]
		}
		page = &Page{URL: pageURL, Title: title, Text: text, Extractor: e.name}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// DefaultSelectors are tried when readability finds nothing usable.
var DefaultSelectors = []string{
	"article", "main", ".content", ".post", ".entry-content", "#content", "body",
}

func extractReadable(document, pageURL string) (string, string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", err
	}
	article, err := readability.FromReader(strings.NewReader(document), u)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(article.Title), cleanText(article.TextContent), nil
}

func extractSelector(document, selector string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", "", err
	}
	title := cleanText(doc.Find("title").First().Text())
	var parts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		sel.Find("script, style, nav, footer").Remove()
		if t := cleanText(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return title, strings.Join(parts, "\n\n"), nil
}

// get downloads a URL with a fresh colly collector.
func (s *Scraper) get(ctx context.Context, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.MaxDepth(1),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.cfg.Timeout)

	var (
		mu       sync.Mutex
		body     []byte
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		fetchErr = fmt.Errorf("%w (status: %d)", err, r.StatusCode)
	})

	if err := c.Visit(target); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	c.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if fetchErr != nil {
		return nil, fetchErr
	}
	if body == nil {
		return nil, fmt.Errorf("empty response from %s", target)
	}
	return body, nil
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
