package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/monitoring"
	"spirolink-backend/internal/usecase"
)

type stubRelay struct {
	out    usecase.RelayOutput
	err    error
	in     usecase.RelayInput
	calls  int
	panics bool
}

func (s *stubRelay) Relay(_ context.Context, in usecase.RelayInput) (usecase.RelayOutput, error) {
	s.calls++
	s.in = in
	if s.panics {
		panic("boom")
	}
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, relay Relayer, opts ...Option) *Handler {
	t.Helper()
	h, err := NewHandler(relay, opts...)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_Health(t *testing.T) {
	h := newTestHandler(t, &stubRelay{})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/health"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"Chatbot backend is running"}`, resp.Body)
}

func TestHandle_HappyPath(t *testing.T) {
	relay := &stubRelay{out: usecase.RelayOutput{Reply: "hello", Model: "gpt-4o-mini"}}
	h := newTestHandler(t, relay)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"What do you do?","context":"Be brief."}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.RelayInput{Message: "What do you do?", Context: "Be brief."}, relay.in)

	out := parseBody[api.ChatReply](t, resp.Body)
	require.Equal(t, api.ChatReply{Success: true, Reply: "hello", Model: "gpt-4o-mini"}, out)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_Base64Body(t *testing.T) {
	relay := &stubRelay{out: usecase.RelayOutput{Reply: "ok", Model: "gpt-4o-mini"}}
	h := newTestHandler(t, relay)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"message":"hi"}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hi", relay.in.Message)
}

func TestHandle_InvalidBody(t *testing.T) {
	relay := &stubRelay{}
	h := newTestHandler(t, relay)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, api.MsgInvalidBody, parseBody[api.ErrorResponse](t, resp.Body).Error)
	require.Zero(t, relay.calls)
}

func TestHandle_EmptyBodyReachesRelay(t *testing.T) {
	relay := &stubRelay{err: &usecase.Error{Code: usecase.ErrorInvalidInput, Message: usecase.MsgEmptyMessage}}
	h := newTestHandler(t, relay)

	resp, err := h.Handle(context.Background(), makeEvent(""))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Message cannot be empty", parseBody[api.ErrorResponse](t, resp.Body).Error)
	require.Equal(t, usecase.RelayInput{}, relay.in)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Message: usecase.MsgEmptyMessage}, status: http.StatusBadRequest, message: usecase.MsgEmptyMessage},
		{name: "not configured", err: &usecase.Error{Code: usecase.ErrorNotConfigured, Message: usecase.MsgNotConfigured}, status: http.StatusInternalServerError, message: usecase.MsgNotConfigured},
		{name: "unauthorized", err: &usecase.Error{Code: usecase.ErrorUnauthorized, Message: usecase.MsgInvalidAPIKey}, status: http.StatusUnauthorized, message: usecase.MsgInvalidAPIKey},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Message: usecase.MsgRateLimited}, status: http.StatusTooManyRequests, message: usecase.MsgRateLimited},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Message: "Chatbot error: overloaded"}, status: http.StatusInternalServerError, message: "Chatbot error: overloaded"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, message: usecase.MsgInternalServer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubRelay{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(`{"message":"What do you do?"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, parseBody[api.ErrorResponse](t, resp.Body).Error)
		})
	}
}

func TestHandle_RecoversPanic(t *testing.T) {
	h := newTestHandler(t, &stubRelay{panics: true})

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.JSONEq(t, `{"error":"Internal server error"}`, resp.Body)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_UnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubRelay{})

	for _, ev := range []events.APIGatewayProxyRequest{
		{HTTPMethod: http.MethodGet, Path: "/chat"},
		{HTTPMethod: http.MethodPost, Path: "/ask"},
	} {
		resp, err := h.Handle(context.Background(), ev)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.JSONEq(t, `{"error":"Not found"}`, resp.Body)
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, &stubRelay{out: usecase.RelayOutput{Reply: "ok"}})

	event := makeEvent(`{"message":"What do you do?"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_GeneratesCorrelationID(t *testing.T) {
	orig := newCorrelationID
	newCorrelationID = func() string { return "generated" }
	t.Cleanup(func() { newCorrelationID = orig })

	h := newTestHandler(t, &stubRelay{})
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/health"})
	require.NoError(t, err)
	require.Equal(t, "generated", resp.Headers["X-Correlation-Id"])
}

func TestHandle_CORS(t *testing.T) {
	h := newTestHandler(t, &stubRelay{}, WithAllowedOrigins([]string{"http://localhost:5173"}))

	event := events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/health", Headers: map[string]string{"origin": "http://localhost:5173"}}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5173", resp.Headers["Access-Control-Allow-Origin"])
	require.Equal(t, "true", resp.Headers["Access-Control-Allow-Credentials"])

	event.HTTPMethod = http.MethodOptions
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Headers["Access-Control-Allow-Origin"])

	event.Headers["origin"] = "https://evil.example"
	event.HTTPMethod = http.MethodGet
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Empty(t, resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_RecordsRelayMetrics(t *testing.T) {
	m := monitoring.NewMetrics()
	h := newTestHandler(t, &stubRelay{err: &usecase.Error{Code: usecase.ErrorRateLimited}}, WithMetrics(m))

	_, err := h.Handle(context.Background(), makeEvent(`{"message":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.RelayOutcomes.WithLabelValues("RATE_LIMITED")))
}
