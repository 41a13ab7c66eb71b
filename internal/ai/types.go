package ai

import "github.com/thinkscotty/outreach/internal/models"

// CommentOpts holds parameters for comment generation.
type CommentOpts struct {
	Target models.Target
	// OnTopic selects the linked-marker instructions.
	OnTopic bool
	// Provider is a per-platform override: "" uses the global ai_provider setting.
	Provider     string
	Marker       string
	MarkerURL    string
	Instructions string
	MaxChars     int
	Temperature  float64
	MaxTokens    int
}

// Generation is one generated comment.
type Generation struct {
	Text       string
	Provider   string
	Model      string
	TokensUsed int
}
