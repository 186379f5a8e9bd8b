package detection

import (
	"regexp"
	"strings"
)

var (
	// phonePattern matches a run of 10-13 digits with an optional leading '+'
	phonePattern = regexp.MustCompile(`\+?\d{10,13}`)

	// handlePattern matches localpart@domain without requiring a TLD, so it
	// also picks up ordinary e-mail prefixes. That over-matching is intended.
	handlePattern = regexp.MustCompile(`\b[\w.\-]{2,}@\w+\b`)

	linkPattern = regexp.MustCompile(`https?://\S+`)
)

// Built-in keyword lists. Configuration may extend but never shrink them.
var (
	DefaultIntelKeywords = []string{"urgent", "verify", "blocked", "suspended"}

	DefaultScamKeywords = []string{"blocked", "verify", "urgent", "upi", "click", "suspended"}

	DefaultScoredKeywords = []string{
		"urgent", "verify", "blocked", "suspended", "upi", "click",
		"prize", "lottery", "winner", "reward", "refund", "kyc", "otp", "expire",
	}
)

// ReplyCues are the substrings that steer decoy reply selection
type ReplyCues struct {
	PaymentHandle []string
	Link          []string
	AccountBlock  []string
	PhoneCall     []string
}

// DefaultReplyCues returns the cue words for each reply topic
func DefaultReplyCues() ReplyCues {
	return ReplyCues{
		PaymentHandle: []string{"upi"},
		Link:          []string{"http", "click"},
		AccountBlock:  []string{"blocked", "suspended"},
		PhoneCall:     []string{"call", "number"},
	}
}

// PatternConfig lists keywords added on top of the built-in sets
type PatternConfig struct {
	IntelKeywords  []string
	ScamKeywords   []string
	ScoredKeywords []string
}

// PatternLibrary is the single source of recognizers and keyword policy
// shared by the extractor, the classifier and the decoy generator.
// It is immutable after construction and safe for concurrent use.
type PatternLibrary struct {
	intelKeywords  []string
	scamKeywords   []string
	scoredKeywords []string
	cues           ReplyCues
}

// NewPatternLibrary builds a library from the defaults plus cfg's extensions
func NewPatternLibrary(cfg PatternConfig) *PatternLibrary {
	return &PatternLibrary{
		intelKeywords:  mergeKeywords(DefaultIntelKeywords, cfg.IntelKeywords),
		scamKeywords:   mergeKeywords(DefaultScamKeywords, cfg.ScamKeywords),
		scoredKeywords: mergeKeywords(DefaultScoredKeywords, cfg.ScoredKeywords),
		cues:           DefaultReplyCues(),
	}
}

// DefaultPatternLibrary returns a library with only the built-in keywords
func DefaultPatternLibrary() *PatternLibrary {
	return NewPatternLibrary(PatternConfig{})
}

// PhoneNumbers returns every phone-number match in scan order
func (p *PatternLibrary) PhoneNumbers(text string) []string {
	return findAll(phonePattern, text)
}

// PaymentHandles returns every payment-handle-like token in scan order
func (p *PatternLibrary) PaymentHandles(text string) []string {
	return findAll(handlePattern, text)
}

// Links returns every http(s) link in scan order
func (p *PatternLibrary) Links(text string) []string {
	return findAll(linkPattern, text)
}

func (p *PatternLibrary) HasPhoneNumber(text string) bool  { return phonePattern.MatchString(text) }
func (p *PatternLibrary) HasPaymentHandle(text string) bool { return handlePattern.MatchString(text) }
func (p *PatternLibrary) HasLink(text string) bool          { return linkPattern.MatchString(text) }

// IntelKeywords returns the intelligence keywords present in text, in list order
func (p *PatternLibrary) IntelKeywords(text string) []string {
	return matchKeywords(p.intelKeywords, text)
}

// ScamKeywords returns the binary-policy keywords present in text, in list order
func (p *PatternLibrary) ScamKeywords(text string) []string {
	return matchKeywords(p.scamKeywords, text)
}

// ScoredKeywords returns the scored-policy keywords present in text, in list order
func (p *PatternLibrary) ScoredKeywords(text string) []string {
	return matchKeywords(p.scoredKeywords, text)
}

// Cues returns the reply cue words
func (p *PatternLibrary) Cues() ReplyCues {
	return p.cues
}

// findAll never returns nil so callers can append without checks
func findAll(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// matchKeywords reports each keyword at most once, regardless of how many times it occurs
func matchKeywords(keywords []string, text string) []string {
	lower := strings.ToLower(text)
	matched := []string{}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			matched = append(matched, k)
		}
	}
	return matched
}

func containsAny(lower string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func mergeKeywords(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, k := range list {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
