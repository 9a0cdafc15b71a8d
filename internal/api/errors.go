package api

import (
	"errors"
	"net/http"
	"strings"

	"spirolink-backend/internal/contact"
	"spirolink-backend/internal/usecase"
)

var statusByCode = map[usecase.ErrorCode]int{
	usecase.ErrorInvalidInput:       http.StatusBadRequest,
	usecase.ErrorNotConfigured:      http.StatusInternalServerError,
	usecase.ErrorUnauthorized:       http.StatusUnauthorized,
	usecase.ErrorRateLimited:        http.StatusTooManyRequests,
	usecase.ErrorUpstream:           http.StatusInternalServerError,
	usecase.ErrorConflict:           http.StatusConflict,
	usecase.ErrorInvalidCredentials: http.StatusUnauthorized,
	usecase.ErrorInvalidSession:     http.StatusUnauthorized,
	usecase.ErrorNotFound:           http.StatusNotFound,
	usecase.ErrorInternal:           http.StatusInternalServerError,
}

// MapError returns the HTTP status and body for err. Anything that is not a
// recognised failure becomes a generic 500.
func MapError(err error) (int, ErrorResponse) {
	if ue, ok := usecase.AsError(err); ok {
		status, known := statusByCode[ue.Code]
		if !known {
			status = http.StatusInternalServerError
		}
		msg := ue.Message
		if msg == "" {
			msg = usecase.MsgInternalServer
		}
		return status, ErrorResponse{Error: msg}
	}

	var verr *contact.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, ErrorResponse{Error: strings.TrimPrefix(verr.Error(), "contact: ")}
	}
	var rerr *contact.RelayError
	if errors.As(err, &rerr) {
		return http.StatusBadGateway, ErrorResponse{Error: rerr.Message}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: usecase.MsgInternalServer}
}

// Code returns the use-case error code for metrics and logs, or INTERNAL_ERROR.
func Code(err error) usecase.ErrorCode {
	if ue, ok := usecase.AsError(err); ok {
		return ue.Code
	}
	return usecase.ErrorInternal
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
