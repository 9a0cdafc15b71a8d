package usecase

import (
	"strings"

	"spirolink-backend/internal/domain"
)

// DefaultSystemPrompt is the persona used when the caller sends no context.
var DefaultSystemPrompt = strings.Join([]string{
	"You are a helpful website chatbot for SPIROLINK, a company specializing in broadband network infrastructure, " +
		"including PON, FTTH, microwave networks, optical long-haul, and WiFi solutions.",
	"",
	"Help users with questions about our services, technology, and solutions. " +
		"Be professional, knowledgeable, and helpful. Keep responses concise and clear.",
}, "\n")

// resolveSystemPrompt returns the override verbatim, or the default persona
// when the override is empty.
func resolveSystemPrompt(override string) string {
	if override == "" {
		return DefaultSystemPrompt
	}
	return override
}

func buildRelayMessages(systemPrompt, message string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: message},
	}
}
