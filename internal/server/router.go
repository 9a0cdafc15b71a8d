// Package server exposes the relay, account and contact operations over
// HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/contact"
	"spirolink-backend/internal/domain"
	"spirolink-backend/internal/logging"
	"spirolink-backend/internal/monitoring"
	"spirolink-backend/internal/usecase"
)

type Relayer interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
}

type Accounts interface {
	SignUp(ctx context.Context, email, password string) (domain.Session, error)
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (domain.Session, error)
	GetProfile(ctx context.Context, uid string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.Profile, error)
}

type ContactSender interface {
	Send(ctx context.Context, form contact.Form) error
}

// Deps are the collaborators behind the routes. Relay is required; a nil
// Accounts or Contact leaves those routes unmounted, and a nil Metrics
// disables collection and /metrics.
type Deps struct {
	Relay          Relayer
	Accounts       Accounts
	Contact        ContactSender
	Metrics        *monitoring.Metrics
	Logger         *logging.Logger
	AllowedOrigins []string
}

type handlers struct {
	deps Deps
}

// NewRouter builds the gin engine with middleware and all mounted routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Relay == nil {
		return nil, errors.New("server: relay must not be nil")
	}
	if len(deps.AllowedOrigins) == 0 {
		return nil, errors.New("server: at least one allowed origin is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}

	r := gin.New()
	r.Use(
		correlationID(),
		recovery(deps.Logger),
		requestLogger(deps.Logger),
		corsMiddleware(deps.AllowedOrigins),
	)
	if deps.Metrics != nil {
		r.Use(monitoring.Middleware(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.MsgNotFound})
	})

	h := &handlers{deps: deps}
	r.GET("/health", h.health)
	r.POST("/chat", h.chat)

	if deps.Accounts != nil {
		auth := r.Group("/auth")
		auth.POST("/signup", h.signUp)
		auth.POST("/signin", h.signIn)
		auth.POST("/signout", h.requireSession, h.signOut)
		auth.GET("/me", h.requireSession, h.me)

		profile := r.Group("/profile", h.requireSession)
		profile.GET("", h.getProfile)
		profile.PUT("", h.updateProfile)
	}

	if deps.Contact != nil {
		r.POST("/contact", h.contact)
	}

	return r, nil
}

// respondError writes the mapped failure and logs it on the request logger.
func (h *handlers) respondError(c *gin.Context, op string, err error) {
	status, body := api.MapError(err)
	log := requestLog(c, h.deps.Logger)
	fields := errorFields(op, err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Info("request rejected", fields...)
	}
	c.JSON(status, body)
}
