// Package session issues signed session tokens and tracks which of them are
// still live in Redis. A token is valid only while its signature verifies,
// it has not expired, and its Redis key exists.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"spirolink-backend/internal/domain"
)

const (
	keyPrefix  = "session:"
	DefaultTTL = 24 * time.Hour
	issuer     = "spirolink"
)

// redisAPI is the subset of *redis.Client used by Manager.
type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues, verifies and revokes sessions.
type Manager struct {
	rdb    redisAPI
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(rdb redisAPI, secret string, ttl time.Duration) (*Manager, error) {
	if rdb == nil {
		return nil, errors.New("session: redis client must not be nil")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{rdb: rdb, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func redisKey(id string) string {
	return keyPrefix + id
}

// Issue signs a token for uid and registers it as live for the session TTL.
func (m *Manager) Issue(ctx context.Context, uid, email string) (domain.Session, error) {
	now := m.now()
	id := uuid.NewString()
	expires := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uid,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: sign token: %w", err)
	}

	if err := m.rdb.Set(ctx, redisKey(id), uid, m.ttl).Err(); err != nil {
		return domain.Session{}, fmt.Errorf("session: store session: %w", err)
	}

	return domain.Session{
		ID:        id,
		Token:     signed,
		UID:       uid,
		Email:     email,
		ExpiresAt: expires.UTC(),
	}, nil
}

// Verify returns the session behind token, or domain.ErrSessionInvalid.
func (m *Manager) Verify(ctx context.Context, token string) (domain.Session, error) {
	c, err := m.parse(token)
	if err != nil {
		return domain.Session{}, err
	}

	uid, err := m.rdb.Get(ctx, redisKey(c.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: lookup session: %w", err)
	}
	if uid != c.Subject {
		return domain.Session{}, domain.ErrSessionInvalid
	}

	sess := domain.Session{ID: c.ID, Token: token, UID: c.Subject, Email: c.Email}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.UTC()
	}
	return sess, nil
}

// Revoke deletes the live key for token. Revoking an unknown or already
// revoked session reports domain.ErrSessionInvalid.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	c, err := m.parse(token)
	if err != nil {
		return err
	}
	n, err := m.rdb.Del(ctx, redisKey(c.ID)).Result()
	if err != nil {
		return fmt.Errorf("session: delete session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionInvalid
	}
	return nil
}

func (m *Manager) parse(token string) (*claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrSessionInvalid
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionInvalid, err)
	}
	if c.ID == "" || c.Subject == "" {
		return nil, domain.ErrSessionInvalid
	}
	return &c, nil
}

// Dial connects to Redis at url and verifies the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: ping redis: %w", err)
	}
	return client, nil
}
