// Package api holds the JSON shapes exchanged with browsers and the
// translation from use-case failures to HTTP responses. Both the gin server
// and the Lambda handler go through it so their responses stay identical.
package api

import "time"

const (
	CorrelationHeader = "X-Correlation-Id"
	HealthStatus      = "Chatbot backend is running"
	MsgInvalidBody    = "Invalid request body"
	MsgNotFound       = "Not found"
	MsgMissingToken   = "Missing bearer token"
)

type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

type ChatReply struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
	Model   string `json:"model"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProfileUpdateRequest leaves a field untouched when it is omitted.
type ProfileUpdateRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}
