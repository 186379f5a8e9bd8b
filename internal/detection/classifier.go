package detection

import (
	"fmt"

	"honeypot-lab/internal/domain/models"
)

// Policy names a classification strategy
type Policy string

const (
	// PolicyBinary flags a message as soon as one scam keyword is present
	PolicyBinary Policy = "binary"
	// PolicyScored counts independent signals and tiers the risk
	PolicyScored Policy = "scored"
)

// ParsePolicy converts a config string into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyBinary, PolicyScored:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown classifier policy %q", s)
	}
}

const (
	scoredScamThreshold = 2
	scoredHighThreshold = 4
)

// Classifier scores one message at a time. It is stateless and safe for concurrent use.
type Classifier struct {
	patterns *PatternLibrary
	policy   Policy
}

// NewClassifier creates a classifier using policy
func NewClassifier(patterns *PatternLibrary, policy Policy) *Classifier {
	return &Classifier{patterns: patterns, policy: policy}
}

// Policy returns the classifier's policy
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify returns the verdict for text
func (c *Classifier) Classify(text string) models.Verdict {
	if c.policy == PolicyScored {
		return c.classifyScored(text)
	}
	return c.classifyBinary(text)
}

func (c *Classifier) classifyBinary(text string) models.Verdict {
	reasons := []string{}
	for _, k := range c.patterns.ScamKeywords(text) {
		reasons = append(reasons, keywordReason(k))
	}
	return models.Verdict{
		IsScam:  len(reasons) > 0,
		Reasons: reasons,
	}
}

// classifyScored emits reasons in a fixed order: keywords, link, phone, payment handle
func (c *Classifier) classifyScored(text string) models.Verdict {
	reasons := []string{}
	for _, k := range c.patterns.ScoredKeywords(text) {
		reasons = append(reasons, keywordReason(k))
	}
	if c.patterns.HasLink(text) {
		reasons = append(reasons, "Contains link")
	}
	if c.patterns.HasPhoneNumber(text) {
		reasons = append(reasons, "Contains phone number")
	}
	if c.patterns.HasPaymentHandle(text) {
		reasons = append(reasons, "Contains payment handle")
	}

	risk := models.RiskLevelLow
	switch {
	case len(reasons) >= scoredHighThreshold:
		risk = models.RiskLevelHigh
	case len(reasons) >= scoredScamThreshold:
		risk = models.RiskLevelMedium
	}

	return models.Verdict{
		IsScam:    len(reasons) >= scoredScamThreshold,
		RiskLevel: risk,
		Reasons:   reasons,
	}
}

func keywordReason(keyword string) string {
	return "Suspicious keyword: " + keyword
}
