package models

import (
	"time"
)

// IntelligenceRecord accumulates artifacts extracted from a conversation.
// Entries are appended in arrival order and never deduplicated or pruned.
type IntelligenceRecord struct {
	// BankAccounts is part of the collector's wire shape; nothing populates it.
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// NewIntelligenceRecord returns a record whose lists marshal as [] rather than null
func NewIntelligenceRecord() IntelligenceRecord {
	return IntelligenceRecord{
		BankAccounts:       []string{},
		UPIIDs:             []string{},
		PhishingLinks:      []string{},
		PhoneNumbers:       []string{},
		SuspiciousKeywords: []string{},
	}
}

// Merge appends every entry of other onto r
func (r *IntelligenceRecord) Merge(other IntelligenceRecord) {
	r.BankAccounts = append(r.BankAccounts, other.BankAccounts...)
	r.UPIIDs = append(r.UPIIDs, other.UPIIDs...)
	r.PhishingLinks = append(r.PhishingLinks, other.PhishingLinks...)
	r.PhoneNumbers = append(r.PhoneNumbers, other.PhoneNumbers...)
	r.SuspiciousKeywords = append(r.SuspiciousKeywords, other.SuspiciousKeywords...)
}

// Clone returns a deep copy that shares no backing arrays with r
func (r IntelligenceRecord) Clone() IntelligenceRecord {
	return IntelligenceRecord{
		BankAccounts:       cloneStrings(r.BankAccounts),
		UPIIDs:             cloneStrings(r.UPIIDs),
		PhishingLinks:      cloneStrings(r.PhishingLinks),
		PhoneNumbers:       cloneStrings(r.PhoneNumbers),
		SuspiciousKeywords: cloneStrings(r.SuspiciousKeywords),
	}
}

// Total returns the number of extracted artifacts
func (r IntelligenceRecord) Total() int {
	return len(r.BankAccounts) + len(r.UPIIDs) + len(r.PhishingLinks) +
		len(r.PhoneNumbers) + len(r.SuspiciousKeywords)
}

// Session is the state of one conversation with a suspected scammer
type Session struct {
	ID           string             `json:"sessionId"`
	Messages     []string           `json:"messages"`
	Extracted    IntelligenceRecord `json:"extracted"`
	CallbackSent bool               `json:"callbackSent"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// NewSession creates an empty session for id
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Messages:  []string{},
		Extracted: NewIntelligenceRecord(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MessageCount returns the number of inbound messages received so far
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// Clone returns a deep copy of the session
func (s *Session) Clone() Session {
	return Session{
		ID:           s.ID,
		Messages:     cloneStrings(s.Messages),
		Extracted:    s.Extracted.Clone(),
		CallbackSent: s.CallbackSent,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
