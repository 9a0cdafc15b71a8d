package widget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"spirolink-backend/internal/api"
)

const msgNoResponse = "Failed to get response"

// ServerError is a non-2xx reply from the chat service. Its text is the
// service's own error message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// RelayClient talks to the chat relay over HTTP.
type RelayClient struct {
	http    *resty.Client
	baseURL string
}

func NewRelayClient(baseURL string, timeout time.Duration) (*RelayClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("widget: base url must not be empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RelayClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		baseURL: baseURL,
	}, nil
}

func (c *RelayClient) BaseURL() string {
	return c.baseURL
}

func (c *RelayClient) Send(ctx context.Context, message, systemPrompt string) (string, error) {
	var (
		reply   api.ChatReply
		errBody api.ErrorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(api.ChatRequest{Message: message, Context: systemPrompt}).
		SetResult(&reply).
		SetError(&errBody).
		Post("/chat")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		msg := strings.TrimSpace(errBody.Error)
		if msg == "" {
			msg = msgNoResponse
		}
		return "", &ServerError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return reply.Reply, nil
}
