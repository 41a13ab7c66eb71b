package scoring

import (
	"errors"
	"fmt"
)

// Points are the rubric weights. The maximum total is Perfect().
type Points struct {
	Concise  int `yaml:"concise"`
	Moderate int `yaml:"moderate"`
	InWindow int `yaml:"in_window"`

	NoDirectAddress int `yaml:"no_direct_address"`
	NoPlatitude     int `yaml:"no_platitude"`
	NoPromotional   int `yaml:"no_promotional"`
	NoFormal        int `yaml:"no_formal"`

	OnTopicLinked    int `yaml:"on_topic_linked"`
	OnTopicUnlinked  int `yaml:"on_topic_unlinked"`
	OnTopicNone      int `yaml:"on_topic_none"`
	OffTopicNone     int `yaml:"off_topic_none"`
	OffTopicLinked   int `yaml:"off_topic_linked"`
	OffTopicUnlinked int `yaml:"off_topic_unlinked"`
}

// Config describes the marker, the length window and the phrase sets.
type Config struct {
	Marker        string   `yaml:"marker"`
	MarkerAliases []string `yaml:"marker_aliases"`

	MinLength   int `yaml:"min_length"`
	MaxLength   int `yaml:"max_length"`
	ConciseMax  int `yaml:"concise_max"`
	ModerateMax int `yaml:"moderate_max"`

	Points Points `yaml:"points"`
	// PlainTextCredit scores a single unlinked on-topic mention like a
	// linked one on platforms that do not render links, so those platforms
	// can reach Perfect.
	PlainTextCredit bool `yaml:"plain_text_credit"`

	DirectAddress []string `yaml:"direct_address"`
	Platitudes    []string `yaml:"platitudes"`
	Promotional   []string `yaml:"promotional"`
	Formal        []string `yaml:"formal"`

	Review ReviewConfig `yaml:"review"`
}

// ReviewConfig controls the optional LLM review pass.
type ReviewConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxRisk is the highest acceptable risk_level (1-10, lower is safer).
	MaxRisk float64 `yaml:"max_risk"`
	// MinAverage is the lowest acceptable mean of the quality criteria.
	MinAverage float64 `yaml:"min_average"`
}

func DefaultConfig() Config {
	return Config{
		Marker:        "kwrds.ai",
		MarkerAliases: []string{"kwrds[dot]ai"},
		MinLength:     40,
		MaxLength:     320,
		ConciseMax:    160,
		ModerateMax:   240,
		Points: Points{
			Concise:          10,
			Moderate:         6,
			InWindow:         3,
			NoDirectAddress:  10,
			NoPlatitude:      10,
			NoPromotional:    10,
			NoFormal:         10,
			OnTopicLinked:    20,
			OnTopicUnlinked:  5,
			OnTopicNone:      0,
			OffTopicNone:     10,
			OffTopicLinked:   8,
			OffTopicUnlinked: 15,
		},
		DirectAddress: []string{
			"you should", "you need", "you must", "you can try", "you have to",
			"check out", "dm me", "hey op", "your business", "your website",
		},
		Platitudes: []string{
			"great post", "great video", "great article", "great question",
			"great insights", "thanks for sharing", "nice post", "love this",
			"well said", "so true", "this is so true", "awesome post",
		},
		Promotional: []string{
			"best tool", "game changer", "must have", "highly recommend",
			"sign up", "free trial", "discount", "limited time", "our tool",
			"we offer", "we provide", "at kwrds ai",
		},
		Formal: []string{
			"furthermore", "moreover", "in conclusion", "additionally", "hence",
			"therefore", "utilize", "dear", "kind regards", "i would like to",
		},
		Review: ReviewConfig{
			MaxRisk:    5,
			MinAverage: 7.0,
		},
	}
}

// Perfect is the highest total the rubric can award.
func (c Config) Perfect() int {
	p := c.Points
	return maxOf(p.Concise, p.Moderate, p.InWindow) +
		p.NoDirectAddress + p.NoPlatitude + p.NoPromotional + p.NoFormal +
		maxOf(p.OnTopicLinked, p.OnTopicUnlinked, p.OnTopicNone,
			p.OffTopicNone, p.OffTopicLinked, p.OffTopicUnlinked)
}

// Validate checks the orderings the rubric relies on.
func (c Config) Validate() error {
	var errs []error
	if c.Marker == "" {
		errs = append(errs, errors.New("marker is required"))
	}
	if c.MinLength < 0 || c.MinLength > c.MaxLength {
		errs = append(errs, fmt.Errorf("length window [%d, %d] is invalid", c.MinLength, c.MaxLength))
	}
	if c.ConciseMax > c.ModerateMax || c.ModerateMax > c.MaxLength {
		errs = append(errs, fmt.Errorf("length bands must satisfy concise_max <= moderate_max <= max_length"))
	}
	p := c.Points
	if !(p.Concise > p.Moderate && p.Moderate > p.InWindow) {
		errs = append(errs, errors.New("length points must satisfy concise > moderate > in_window"))
	}
	if p.OnTopicLinked <= p.OnTopicNone || p.OnTopicLinked <= p.OnTopicUnlinked {
		errs = append(errs, errors.New("on_topic_linked must be the highest on-topic marker score"))
	}
	if p.OffTopicUnlinked <= p.OffTopicLinked {
		errs = append(errs, errors.New("off_topic_unlinked must exceed off_topic_linked"))
	}
	if c.Review.Enabled && (c.Review.MaxRisk < 1 || c.Review.MaxRisk > 10) {
		errs = append(errs, fmt.Errorf("review.max_risk %.1f outside [1, 10]", c.Review.MaxRisk))
	}
	return errors.Join(errs...)
}

func maxOf(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
