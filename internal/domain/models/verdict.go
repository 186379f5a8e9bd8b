package models

// RiskLevel is the tier assigned by the scored classification policy
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// Verdict is the per-message classification result. It is never stored.
type Verdict struct {
	IsScam bool `json:"isScam"`
	// RiskLevel is empty under the binary policy, which does not tier.
	RiskLevel RiskLevel `json:"riskLevel,omitempty"`
	Reasons   []string  `json:"reasons"`
}
