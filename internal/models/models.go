package models

import "time"

// Platform identifies where a target lives and where comments are published.
type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformYouTube  Platform = "youtube"
	PlatformLinkedIn Platform = "linkedin"
	PlatformQuora    Platform = "quora"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{PlatformReddit, PlatformYouTube, PlatformLinkedIn, PlatformQuora}

// RendersLinks reports whether comments on the platform render markdown
// links. Elsewhere a link shows up as raw text.
func (p Platform) RendersLinks() bool {
	return p == PlatformReddit
}

// ParsePlatform returns the platform for a name, or false if unknown.
func ParsePlatform(name string) (Platform, bool) {
	for _, p := range Platforms {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// Target is the read-only context a comment is generated for: a post,
// question or video found on a platform.
type Target struct {
	Platform Platform `json:"platform"`
	// ID is the platform-native identifier (reddit fullname, video id, post urn, url).
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Author  string `json:"author,omitempty"`
	Channel string `json:"channel,omitempty"`
	Query   string `json:"query,omitempty"`
}

// Key is the identifier used by the processed-target set.
func (t Target) Key() string {
	return string(t.Platform) + ":" + t.ID
}

// Excerpt returns at most n runes of the body.
func (t Target) Excerpt(n int) string {
	r := []rune(t.Body)
	if len(r) <= n {
		return t.Body
	}
	return string(r[:n]) + "..."
}

// Candidate is one generated comment with its derived measurements.
type Candidate struct {
	Text string `json:"text"`

	Length        int  `json:"length"`
	Occurrences   int  `json:"occurrences"`
	Linked        int  `json:"linked"`
	DirectAddress bool `json:"direct_address"`
	Platitude     bool `json:"platitude"`
	Promotional   bool `json:"promotional"`
	Formal        bool `json:"formal"`

	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// Comment is a published (or outboxed) comment.
type Comment struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Platform   Platform  `json:"platform"`
	TargetID   string    `json:"target_id"`
	TargetURL  string    `json:"target_url"`
	Content    string    `json:"content"`
	Trigrams   string    `json:"-"`
	Score      int       `json:"score"`
	AIProvider string    `json:"ai_provider"`
	AIModel    string    `json:"ai_model"`
	Publisher  string    `json:"publisher"`
	CreatedAt  time.Time `json:"created_at"`
}

// GenerationLog records one selection cycle.
type GenerationLog struct {
	ID                 int64     `json:"id"`
	RunID              string    `json:"run_id"`
	Platform           Platform  `json:"platform"`
	TargetID           string    `json:"target_id"`
	State              string    `json:"state"`
	Attempts           int       `json:"attempts"`
	GenerationFailures int       `json:"generation_failures"`
	ScoringFailures    int       `json:"scoring_failures"`
	BestScore          int       `json:"best_score"`
	TokensUsed         int       `json:"tokens_used"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// DomainStatus is the availability verdict for a domain.
type DomainStatus string

const (
	DomainAvailable DomainStatus = "available"
	DomainTaken     DomainStatus = "taken"
	DomainUncertain DomainStatus = "uncertain"
)

// DomainCheck is the result of checking one domain.
type DomainCheck struct {
	ID         int64        `json:"id"`
	Keyword    string       `json:"keyword"`
	Domain     string       `json:"domain"`
	Status     DomainStatus `json:"status"`
	Method     string       `json:"method"`
	ExpiryDate string       `json:"expiry_date,omitempty"`
	Error      string       `json:"error,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
}

// Stats summarizes stored activity.
type Stats struct {
	CommentsByPlatform map[string]int `json:"comments_by_platform"`
	TotalComments      int            `json:"total_comments"`
	ProcessedTargets   int            `json:"processed_targets"`
	Cycles             int            `json:"cycles"`
	AcceptedCycles     int            `json:"accepted_cycles"`
	TotalTokensUsed    int            `json:"total_tokens_used"`
	DomainChecks       int            `json:"domain_checks"`
	AvailableDomains   int            `json:"available_domains"`
	DatabaseSizeBytes  int64          `json:"database_size_bytes"`
}
