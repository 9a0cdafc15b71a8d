package usecase

import (
	"context"
	"errors"
	"strings"

	"spirolink-backend/internal/domain"
)

const (
	// RelayModel is the fixed completion model for every relay call.
	RelayModel       = "gpt-4o-mini"
	relayMaxTokens   = 500
	relayTemperature = 0.7
)

// Caller-facing relay messages.
const (
	MsgEmptyMessage   = "Message cannot be empty"
	MsgNotConfigured  = "API key not configured"
	MsgInvalidAPIKey  = "API key invalid. Please check your OpenAI API key configuration"
	MsgRateLimited    = "Rate limit exceeded. Please try again later."
	MsgChatbotPrefix  = "Chatbot error: "
	MsgInternalServer = "Internal server error"
)

// CredentialSource resolves the completion API key. An empty key with a nil
// error means no credential is configured.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, apiKey string, params domain.CompletionParams, messages []domain.ChatMessage) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type upstreamMessager interface {
	UpstreamMessage() string
}

// RelayService forwards one chat message to the completion API. It holds no
// per-request state and is safe for concurrent use.
type RelayService struct {
	creds CredentialSource
	llm   LLMClient
}

type RelayInput struct {
	Message string
	Context string
}

type RelayOutput struct {
	Reply string
	Model string
}

func NewRelayService(creds CredentialSource, llm LLMClient) (*RelayService, error) {
	if creds == nil {
		return nil, errors.New("usecase: credential source must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	return &RelayService{creds: creds, llm: llm}, nil
}

func (s *RelayService) Relay(ctx context.Context, in RelayInput) (RelayOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return RelayOutput{}, newError(ErrorInvalidInput, "empty_message", MsgEmptyMessage, nil)
	}

	// Resolved on every call so a key added after start-up is picked up.
	apiKey, err := s.creds.APIKey(ctx)
	if err != nil {
		return RelayOutput{}, newError(ErrorInternal, "credential_lookup_error", MsgInternalServer, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return RelayOutput{}, newError(ErrorNotConfigured, "api_key_missing", MsgNotConfigured, nil)
	}

	reply, err := s.llm.Chat(ctx, apiKey, domain.CompletionParams{
		Model:       RelayModel,
		MaxTokens:   relayMaxTokens,
		Temperature: relayTemperature,
	}, buildRelayMessages(resolveSystemPrompt(in.Context), message))
	if err != nil {
		return RelayOutput{}, classifyUpstream(err)
	}

	return RelayOutput{Reply: reply, Model: RelayModel}, nil
}

func classifyUpstream(err error) *Error {
	if status, ok := upstreamStatusCode(err); ok {
		switch status {
		case 401:
			return newError(ErrorUnauthorized, "openai_unauthorized", MsgInvalidAPIKey, err)
		case 429:
			return newError(ErrorRateLimited, "openai_rate_limited", MsgRateLimited, err)
		}
	}
	return newError(ErrorUpstream, "openai_error", MsgChatbotPrefix+upstreamMessage(err), err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func upstreamMessage(err error) string {
	var m upstreamMessager
	if errors.As(err, &m) {
		if msg := strings.TrimSpace(m.UpstreamMessage()); msg != "" {
			return msg
		}
	}
	return err.Error()
}
