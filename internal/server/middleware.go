package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/logging"
	"spirolink-backend/internal/usecase"
)

const (
	correlationKey = "correlation_id"
	sessionKey     = "session"
)

var newCorrelationID = func() string {
	return uuid.NewString()
}

// correlationID reuses the caller's X-Correlation-Id or mints one, and echoes
// it on the response.
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(api.CorrelationHeader))
		if id == "" {
			id = newCorrelationID()
		}
		c.Set(correlationKey, id)
		c.Header(api.CorrelationHeader, id)
		c.Next()
	}
}

func requestLog(c *gin.Context, base *logging.Logger) *logging.Logger {
	return base.WithCorrelationID(c.GetString(correlationKey))
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLog(c, logger).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// recovery turns a panic into the generic 500 body.
func recovery(logger *logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		requestLog(c, logger).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{Error: usecase.MsgInternalServer})
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", api.CorrelationHeader},
		ExposeHeaders:    []string{api.CorrelationHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func errorFields(op string, err error) []zap.Field {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if ue, ok := usecase.AsError(err); ok {
		fields = append(fields, zap.String("code", string(ue.Code)), zap.String("reason", ue.Reason))
	}
	return fields
}
