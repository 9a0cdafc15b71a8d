// Package handler serves the chat relay from API Gateway proxy events.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/logging"
	"spirolink-backend/internal/monitoring"
	"spirolink-backend/internal/usecase"
)

type Relayer interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

type Handler struct {
	relay   Relayer
	origins map[string]struct{}
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

type Option func(*Handler)

func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.origins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			h.origins[o] = struct{}{}
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(relay Relayer, opts ...Option) (*Handler, error) {
	if relay == nil {
		return nil, errors.New("handler: relay must not be nil")
	}
	h := &Handler{
		relay:   relay,
		origins: map[string]struct{}{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle routes one proxy event. It never returns an error to the Lambda
// runtime; every failure, panics included, becomes a JSON response.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	correlationID := headerValue(req.Headers, api.CorrelationHeader)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}
	log := h.logger.WithCorrelationID(correlationID)
	origin := headerValue(req.Headers, "Origin")

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic recovered", zap.Any("panic", r), zap.String("path", req.Path))
			resp = h.jsonResponse(http.StatusInternalServerError, api.ErrorResponse{Error: usecase.MsgInternalServer})
			err = nil
		}
		h.decorate(&resp, correlationID, origin)
		log.Info("request",
			zap.String("method", req.HTTPMethod),
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
		)
	}()

	path := strings.TrimRight(req.Path, "/")
	switch {
	case req.HTTPMethod == http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: map[string]string{}}, nil
	case req.HTTPMethod == http.MethodGet && path == "/health":
		return h.jsonResponse(http.StatusOK, api.HealthResponse{Status: api.HealthStatus}), nil
	case req.HTTPMethod == http.MethodPost && path == "/chat":
		return h.chat(ctx, log, req), nil
	default:
		return h.jsonResponse(http.StatusNotFound, api.ErrorResponse{Error: api.MsgNotFound}), nil
	}
}

func (h *Handler) chat(ctx context.Context, log *logging.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return h.jsonResponse(http.StatusBadRequest, api.ErrorResponse{Error: api.MsgInvalidBody})
		}
		body = string(raw)
	}

	var in api.ChatRequest
	// An absent body is treated like {} so it fails as an empty message.
	if strings.TrimSpace(body) != "" {
		if err := json.Unmarshal([]byte(body), &in); err != nil {
			return h.jsonResponse(http.StatusBadRequest, api.ErrorResponse{Error: api.MsgInvalidBody})
		}
	}

	start := time.Now()
	out, err := h.relay.Relay(ctx, usecase.RelayInput{Message: in.Message, Context: in.Context})
	if h.metrics != nil {
		code := "OK"
		if err != nil {
			code = string(api.Code(err))
		}
		h.metrics.RecordRelay(code, time.Since(start))
	}
	if err != nil {
		status, payload := api.MapError(err)
		fields := []zap.Field{zap.Error(err), zap.String("code", string(api.Code(err)))}
		if status >= http.StatusInternalServerError {
			log.Error("relay failed", fields...)
		} else {
			log.Info("relay rejected", fields...)
		}
		return h.jsonResponse(status, payload)
	}

	return h.jsonResponse(http.StatusOK, api.ChatReply{Success: true, Reply: out.Reply, Model: out.Model})
}

func (h *Handler) jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"` + usecase.MsgInternalServer + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}

// decorate adds the correlation id and, for allow-listed origins, the CORS
// headers.
func (h *Handler) decorate(resp *events.APIGatewayProxyResponse, correlationID, origin string) {
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[api.CorrelationHeader] = correlationID
	if _, ok := h.origins[origin]; ok && origin != "" {
		resp.Headers["Access-Control-Allow-Origin"] = origin
		resp.Headers["Access-Control-Allow-Credentials"] = "true"
		resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
		resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization," + api.CorrelationHeader
		resp.Headers["Vary"] = "Origin"
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
