// Package similarity detects near-duplicate comments with character n-gram
// Jaccard similarity.
package similarity

import (
	"encoding/json"
	"sort"

	"github.com/thinkscotty/outreach/internal/relevance"
)

// StoredTrigrams is a published comment's id and serialized n-gram set.
type StoredTrigrams struct {
	ID       int64
	Trigrams string
}

type Checker struct {
	threshold float64
	ngramSize int
}

// New returns a checker. A non-positive n-gram size defaults to 3.
func New(threshold float64, ngramSize int) *Checker {
	if ngramSize <= 0 {
		ngramSize = 3
	}
	return &Checker{threshold: threshold, ngramSize: ngramSize}
}

// Trigrams extracts the character n-grams of the normalized text.
func (c *Checker) Trigrams(text string) map[string]struct{} {
	runes := []rune(relevance.Normalize(text))
	set := make(map[string]struct{})
	for i := 0; i+c.ngramSize <= len(runes); i++ {
		set[string(runes[i:i+c.ngramSize])] = struct{}{}
	}
	return set
}

// Encode serializes an n-gram set for storage, sorted for stable output.
func (c *Checker) Encode(set map[string]struct{}) string {
	list := make([]string, 0, len(set))
	for k := range set {
		list = append(list, k)
	}
	sort.Strings(list)
	data, _ := json.Marshal(list)
	return string(data)
}

// Decode parses a stored n-gram set. Corrupt data yields an empty set.
func (c *Checker) Decode(data string) map[string]struct{} {
	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return map[string]struct{}{}
	}
	set := make(map[string]struct{}, len(list))
	for _, g := range list {
		set[g] = struct{}{}
	}
	return set
}

// Jaccard computes |A intersection B| / |A union B|.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for k := range a {
		if _, ok := b[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// MostSimilar returns the first stored comment whose similarity to text
// reaches the threshold.
func (c *Checker) MostSimilar(text string, existing []StoredTrigrams) (StoredTrigrams, bool) {
	grams := c.Trigrams(text)
	for _, e := range existing {
		if Jaccard(grams, c.Decode(e.Trigrams)) >= c.threshold {
			return e, true
		}
	}
	return StoredTrigrams{}, false
}
