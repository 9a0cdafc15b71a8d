package domain

// Chat roles understood by the completion API.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is the provider-agnostic chat message shape passed from the
// relay use case to the completion client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionParams carries the fixed sampling settings for one completion call.
type CompletionParams struct {
	Model       string
	MaxTokens   int
	Temperature float64
}
