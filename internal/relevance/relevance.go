// Package relevance decides whether a target is about the promoted topic.
// Keywords are matched in a single Aho-Corasick pass over normalized text.
package relevance

import (
	"sort"
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keyword is a weighted topic term.
type Keyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// Config holds the keyword list and thresholds.
type Config struct {
	Keywords []Keyword `yaml:"keywords"`
	// OnTopicScore is the minimum score for a target to count as on-topic.
	OnTopicScore float64 `yaml:"on_topic_score"`
	// MinScore is the minimum score for a target to be processed at all.
	// Zero processes everything.
	MinScore float64 `yaml:"min_score"`
}

// DefaultConfig returns the SEO / keyword research topic list.
func DefaultConfig() Config {
	return Config{
		Keywords: []Keyword{
			{Term: "keyword research", Weight: 2},
			{Term: "seo", Weight: 1},
			{Term: "search engine optimization", Weight: 1},
			{Term: "serp", Weight: 1},
			{Term: "content strategy", Weight: 1},
			{Term: "content marketing", Weight: 1},
			{Term: "digital marketing", Weight: 0.5},
			{Term: "keywords", Weight: 1},
			{Term: "blogging", Weight: 0.5},
			{Term: "website traffic", Weight: 1},
			{Term: "google ranking", Weight: 1},
			{Term: "people also ask", Weight: 1},
		},
		OnTopicScore: 1,
	}
}

// Relevance is the outcome of classifying a target.
type Relevance struct {
	Score    float64
	Matched  []string
	OnTopic  bool
	Relevant bool
}

// Classifier scores text against the keyword list.
type Classifier struct {
	matcher *ahocorasick.Matcher
	terms   []string
	weights []float64
	onTopic float64
	min     float64
}

// New builds the matcher. Terms that normalize to the same text keep the
// highest weight; a missing weight counts as 1.
func New(cfg Config) *Classifier {
	byTerm := make(map[string]float64, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		term := Normalize(kw.Term)
		if term == "" {
			continue
		}
		w := kw.Weight
		if w <= 0 {
			w = 1
		}
		if w > byTerm[term] {
			byTerm[term] = w
		}
	}

	c := &Classifier{onTopic: cfg.OnTopicScore, min: cfg.MinScore}
	for term := range byTerm {
		c.terms = append(c.terms, term)
	}
	sort.Strings(c.terms)

	padded := make([]string, len(c.terms))
	c.weights = make([]float64, len(c.terms))
	for i, term := range c.terms {
		// Padding with spaces makes every hit a whole-word hit.
		padded[i] = " " + term + " "
		c.weights[i] = byTerm[term]
	}
	if len(padded) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(padded)
	}
	return c
}

// Classify scores title and body together. Each keyword counts once. It is
// safe for concurrent use.
func (c *Classifier) Classify(title, body string) Relevance {
	var r Relevance
	if c.matcher != nil {
		text := " " + Normalize(title+" "+body) + " "
		seen := make(map[int]bool)
		for _, idx := range c.matcher.MatchThreadSafe([]byte(text)) {
			if idx < 0 || idx >= len(c.terms) || seen[idx] {
				continue
			}
			seen[idx] = true
			r.Score += c.weights[idx]
			r.Matched = append(r.Matched, c.terms[idx])
		}
		sort.Strings(r.Matched)
	}
	r.OnTopic = r.Score > 0 && r.Score >= c.onTopic
	r.Relevant = r.Score >= c.min
	return r
}

// Normalize folds text to lowercase ASCII-ish words separated by single spaces:
// accents are stripped and punctuation becomes whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			space = false
		} else if !space {
			sb.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(sb.String())
}
