package detection

import (
	"honeypot-lab/internal/domain/models"
)

// Extractor pulls threat intelligence out of a single message
type Extractor struct {
	patterns *PatternLibrary
}

// NewExtractor creates an extractor backed by patterns
func NewExtractor(patterns *PatternLibrary) *Extractor {
	return &Extractor{patterns: patterns}
}

// Extract returns the artifacts found in text. Callers merge the result into
// the session record exactly once per inbound message.
func (e *Extractor) Extract(text string) models.IntelligenceRecord {
	record := models.NewIntelligenceRecord()
	record.PhoneNumbers = e.patterns.PhoneNumbers(text)
	record.UPIIDs = e.patterns.PaymentHandles(text)
	record.PhishingLinks = e.patterns.Links(text)
	record.SuspiciousKeywords = e.patterns.IntelKeywords(text)
	return record
}
