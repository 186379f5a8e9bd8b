package services

import (
	"strings"

	"honeypot-lab/internal/domain/models"
)

const defaultAgentNotes = "Scammer used urgency and payment redirection tactics"

// AgentNotes summarizes the tactics visible in the collected intelligence
func AgentNotes(intel models.IntelligenceRecord) string {
	var tactics []string

	for _, k := range intel.SuspiciousKeywords {
		if k == "urgent" {
			tactics = append(tactics, "urgency")
			break
		}
	}
	for _, k := range intel.SuspiciousKeywords {
		if k == "blocked" || k == "suspended" {
			tactics = append(tactics, "account-block threats")
			break
		}
	}
	if len(intel.UPIIDs) > 0 {
		tactics = append(tactics, "payment redirection")
	}
	if len(intel.PhishingLinks) > 0 {
		tactics = append(tactics, "phishing links")
	}
	if len(intel.PhoneNumbers) > 0 {
		tactics = append(tactics, "phone contact")
	}

	if len(tactics) == 0 {
		return defaultAgentNotes
	}
	return "Scammer used " + joinTactics(tactics) + " tactics"
}

func joinTactics(t []string) string {
	if len(t) == 1 {
		return t[0]
	}
	return strings.Join(t[:len(t)-1], ", ") + " and " + t[len(t)-1]
}
