package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/thinkscotty/outreach/internal/models"
)

var (
	blankLines   = regexp.MustCompile(`\n\s*\n+`)
	leadingLabel = regexp.MustCompile(`(?i)^\s*(?:comment|answer|reply)\s*:\s*`)
)

// platformStyle describes how comments read on each platform.
var platformStyle = map[models.Platform]string{
	models.PlatformReddit:   "a Reddit comment in a subreddit thread. Be casual and specific, like a regular member of the community",
	models.PlatformYouTube:  "a YouTube comment under a video. Keep it to one or two casual sentences",
	models.PlatformLinkedIn: "a LinkedIn comment on a post. Keep it professional but conversational, two or three sentences",
	models.PlatformQuora:    "a short Quora answer. Lead with a useful point from experience, then keep it brief",
}

// BuildCommentPrompt constructs the prompt for one comment.
func BuildCommentPrompt(opts CommentOpts) string {
	t := opts.Target
	var sb strings.Builder

	style, ok := platformStyle[t.Platform]
	if !ok {
		style = "a short comment"
	}
	sb.WriteString(fmt.Sprintf("You are a digital marketer who uses %s. Write %s, as a satisfied user.\n\n", opts.Marker, style))

	if t.Title != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n", t.Title))
	}
	if t.Channel != "" {
		sb.WriteString(fmt.Sprintf("Channel: %s\n", t.Channel))
	}
	if t.Body != "" {
		sb.WriteString(fmt.Sprintf("Content:\n%s\n", t.Excerpt(1500)))
	}

	sb.WriteString("\nGuidelines:\n")
	sb.WriteString("- Write exactly one comment, specific to the content above\n")
	sb.WriteString("- Add value to the discussion first\n")
	sb.WriteString("- Write as a genuine user, never as an employee (no \"we offer\", \"our tool\")\n")
	sb.WriteString("- Do not address the reader or author directly and do not tell anyone what they should do\n")
	sb.WriteString("- Do not open with generic praise such as \"great post\" or \"thanks for sharing\"\n")
	sb.WriteString("- Avoid formal words like \"furthermore\" or \"moreover\" and avoid sales language\n")
	if opts.MaxChars > 0 {
		sb.WriteString(fmt.Sprintf("- Keep it under %d characters\n", opts.MaxChars))
	}
	sb.WriteString("- Do not use quotation marks\n")

	switch {
	case opts.OnTopic && t.Platform.RendersLinks() && opts.MarkerURL != "":
		sb.WriteString(fmt.Sprintf("- Mention %s exactly once, as the markdown link [%s](%s)\n", opts.Marker, opts.Marker, opts.MarkerURL))
	default:
		sb.WriteString(fmt.Sprintf("- Mention %s exactly once, in passing, as plain text without a link\n", opts.Marker))
	}

	if opts.Instructions != "" {
		sb.WriteString(fmt.Sprintf("\nAdditional instructions: %s\n", opts.Instructions))
	}
	sb.WriteString("\nReturn ONLY the comment text.")
	return sb.String()
}

// BuildReviewPrompt asks for a strict JSON review of a proposed comment.
func BuildReviewPrompt(t models.Target, comment string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Evaluate this %s comment for quality and appropriateness.\n\n", t.Platform))
	sb.WriteString(fmt.Sprintf("Post:\n%s\n%s\n\n", t.Title, t.Excerpt(500)))
	sb.WriteString(fmt.Sprintf("Proposed comment:\n%s\n\n", comment))
	sb.WriteString("Rate each criterion from 1 to 10: relevance to the post, professionalism, naturalness, value added, ")
	sb.WriteString("and risk level (lower is safer: risk of reading as spam or self-promotion).\n\n")
	sb.WriteString("Return ONLY a JSON object with exactly these fields:\n")
	sb.WriteString(`{"scores": {"relevance": 0, "professionalism": 0, "naturalness": 0, "value_added": 0, "risk_level": 0}, `)
	sb.WriteString(`"should_revise": false, "reason": "short explanation", "suggestions": "improvement ideas if needed"}`)
	return sb.String()
}

// CleanComment strips quotation marks and labels, collapses blank lines
// and trims the text.
func CleanComment(text string) string {
	text = strings.TrimSpace(text)
	text = leadingLabel.ReplaceAllString(text, "")
	text = strings.NewReplacer("\"", "", "“", "", "”", "").Replace(text)
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
