package scoring

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/relevance"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]*)\)`)
	anchorLink   = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a>`)
)

// Meter derives candidate measurements from raw text.
type Meter struct {
	marker        *regexp.Regexp
	directAddress []string
	platitudes    []string
	promotional   []string
	formal        []string
}

// NewMeter compiles the marker pattern and normalizes the phrase sets.
func NewMeter(cfg Config) *Meter {
	names := append([]string{cfg.Marker}, cfg.MarkerAliases...)
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			quoted = append(quoted, regexp.QuoteMeta(n))
		}
	}
	return &Meter{
		marker:        regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`),
		directAddress: normalizeAll(cfg.DirectAddress),
		platitudes:    normalizeAll(cfg.Platitudes),
		promotional:   normalizeAll(cfg.Promotional),
		formal:        normalizeAll(cfg.Formal),
	}
}

// Measure fills the derived fields of c from c.Text. The target author's
// name, when known, counts as a direct-address phrase.
func (m *Meter) Measure(c models.Candidate, t models.Target) models.Candidate {
	text := strings.TrimSpace(c.Text)
	c.Text = text
	c.Length = utf8.RuneCountInString(text)
	c.Linked, c.Occurrences = m.countMarker(text)

	norm := " " + relevance.Normalize(text) + " "
	c.DirectAddress = containsAny(norm, m.directAddress)
	if author := relevance.Normalize(t.Author); len(author) >= 3 && strings.Contains(norm, " "+author+" ") {
		c.DirectAddress = true
	}
	c.Platitude = hasAnyPrefix(norm, m.platitudes)
	c.Promotional = containsAny(norm, m.promotional)
	c.Formal = containsAny(norm, m.formal)
	return c
}

// countMarker returns linked and total marker occurrences. A link whose
// text or target mentions the marker counts once.
func (m *Meter) countMarker(text string) (linked, total int) {
	rest := text
	for _, re := range []*regexp.Regexp{markdownLink, anchorLink} {
		rest = re.ReplaceAllStringFunc(rest, func(link string) string {
			if m.marker.MatchString(link) {
				linked++
				return " "
			}
			return link
		})
	}
	unlinked := len(m.marker.FindAllStringIndex(rest, -1))
	return linked, linked + unlinked
}

func normalizeAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := relevance.Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.HasPrefix(padded, " "+p+" ") {
			return true
		}
	}
	return false
}
