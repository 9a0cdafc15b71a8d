package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"spirolink-backend/internal/domain"
)

const minPasswordLength = 6

// Caller-facing account messages.
const (
	MsgInvalidEmail       = "Invalid email address"
	MsgWeakPassword       = "Password should be at least 6 characters"
	MsgEmailTaken         = "Email already in use"
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidSession     = "Session is invalid or has expired"
	MsgProfileNotFound    = "Profile not found"
)

type AccountStore interface {
	CreateAccount(ctx context.Context, login domain.Login, profile domain.Profile) error
	GetLogin(ctx context.Context, email string) (domain.Login, bool, error)
	GetProfile(ctx context.Context, uid string) (domain.Profile, bool, error)
	UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.Profile, bool, error)
}

type SessionManager interface {
	Issue(ctx context.Context, uid, email string) (domain.Session, error)
	Verify(ctx context.Context, token string) (domain.Session, error)
	Revoke(ctx context.Context, token string) error
}

// AccountService wraps account storage and session issuance. It keeps no
// state of its own.
type AccountService struct {
	store    AccountStore
	sessions SessionManager
	validate *validator.Validate
	hashCost int
	now      func() time.Time
}

type AccountOption func(*AccountService)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) AccountOption {
	return func(s *AccountService) {
		s.hashCost = cost
	}
}

func NewAccountService(store AccountStore, sessions SessionManager, opts ...AccountOption) (*AccountService, error) {
	if store == nil {
		return nil, errors.New("usecase: account store must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session manager must not be nil")
	}
	s := &AccountService{
		store:    store,
		sessions: sessions,
		validate: validator.New(),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignUp creates the login and the default profile document, then opens a session.
func (s *AccountService) SignUp(ctx context.Context, email, password string) (domain.Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.Session{}, newError(ErrorInvalidInput, "invalid_email", MsgInvalidEmail, err)
	}
	if len(password) < minPasswordLength {
		return domain.Session{}, newError(ErrorInvalidInput, "weak_password", MsgWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.Session{}, newError(ErrorInternal, "password_hash_error", MsgInternalServer, err)
	}

	uid := newUID()
	profile := domain.Profile{
		UID:       uid,
		Email:     email,
		Role:      domain.DefaultRole,
		CreatedAt: s.now().UTC(),
	}
	login := domain.Login{Email: email, UID: uid, PasswordHash: string(hash)}

	if err := s.store.CreateAccount(ctx, login, profile); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.Session{}, newError(ErrorConflict, "email_taken", MsgEmailTaken, err)
		}
		return domain.Session{}, newError(ErrorInternal, "account_write_error", err.Error(), err)
	}

	return s.openSession(ctx, uid, email)
}

// SignIn verifies the password for email and opens a session.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.Session{}, newError(ErrorInvalidCredentials, "missing_credentials", MsgInvalidCredentials, nil)
	}

	login, found, err := s.store.GetLogin(ctx, email)
	if err != nil {
		return domain.Session{}, newError(ErrorInternal, "login_read_error", err.Error(), err)
	}
	if !found {
		return domain.Session{}, newError(ErrorInvalidCredentials, "unknown_email", MsgInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(password)); err != nil {
		return domain.Session{}, newError(ErrorInvalidCredentials, "password_mismatch", MsgInvalidCredentials, nil)
	}

	return s.openSession(ctx, login.UID, login.Email)
}

// SignOut revokes the session behind token.
func (s *AccountService) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return sessionError(err)
	}
	return nil
}

// CurrentUser resolves the session behind token.
func (s *AccountService) CurrentUser(ctx context.Context, token string) (domain.Session, error) {
	sess, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return domain.Session{}, sessionError(err)
	}
	return sess, nil
}

// GetProfile returns the stored profile for uid.
func (s *AccountService) GetProfile(ctx context.Context, uid string) (domain.Profile, error) {
	profile, found, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		return domain.Profile{}, newError(ErrorInternal, "profile_read_error", err.Error(), err)
	}
	if !found {
		return domain.Profile{}, newError(ErrorNotFound, "profile_missing", MsgProfileNotFound, nil)
	}
	return profile, nil
}

// UpdateProfile merges update into the stored profile.
func (s *AccountService) UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.Profile, error) {
	if update.Name == nil && update.Phone == nil {
		return s.GetProfile(ctx, uid)
	}
	profile, found, err := s.store.UpdateProfile(ctx, uid, update)
	if err != nil {
		return domain.Profile{}, newError(ErrorInternal, "profile_write_error", err.Error(), err)
	}
	if !found {
		return domain.Profile{}, newError(ErrorNotFound, "profile_missing", MsgProfileNotFound, nil)
	}
	return profile, nil
}

func (s *AccountService) openSession(ctx context.Context, uid, email string) (domain.Session, error) {
	sess, err := s.sessions.Issue(ctx, uid, email)
	if err != nil {
		return domain.Session{}, newError(ErrorInternal, "session_issue_error", err.Error(), err)
	}
	return sess, nil
}

func sessionError(err error) *Error {
	if errors.Is(err, domain.ErrSessionInvalid) {
		return newError(ErrorInvalidSession, "session_invalid", MsgInvalidSession, err)
	}
	return newError(ErrorInternal, "session_store_error", err.Error(), err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var newUID = func() string {
	return uuid.NewString()
}
