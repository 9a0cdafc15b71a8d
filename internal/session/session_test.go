package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"spirolink-backend/internal/domain"
)

// fakeRedis keeps keys in memory and ignores expiry; TTLs are recorded.
type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func mustNewManager(t *testing.T, rdb redisAPI) *Manager {
	t.Helper()
	m, err := NewManager(rdb, "test-secret", time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewManager_Validates(t *testing.T) {
	_, err := NewManager(nil, "s", time.Hour)
	require.Error(t, err)

	_, err = NewManager(newFakeRedis(), " ", time.Hour)
	require.Error(t, err)

	m, err := NewManager(newFakeRedis(), "s", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, m.ttl)
}

func TestIssueVerifyRevoke(t *testing.T) {
	rdb := newFakeRedis()
	m := mustNewManager(t, rdb)

	sess, err := m.Issue(context.Background(), "u1", "a@b.com")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, "u1", rdb.data["session:"+sess.ID])
	require.Equal(t, time.Hour, rdb.ttls["session:"+sess.ID])

	got, err := m.Verify(context.Background(), sess.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", got.UID)
	require.Equal(t, "a@b.com", got.Email)
	require.Equal(t, sess.ID, got.ID)

	require.NoError(t, m.Revoke(context.Background(), sess.Token))

	_, err = m.Verify(context.Background(), sess.Token)
	require.ErrorIs(t, err, domain.ErrSessionInvalid)

	err = m.Revoke(context.Background(), sess.Token)
	require.ErrorIs(t, err, domain.ErrSessionInvalid)
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	m := mustNewManager(t, newFakeRedis())

	for _, tok := range []string{"", "  ", "not-a-jwt"} {
		_, err := m.Verify(context.Background(), tok)
		require.ErrorIs(t, err, domain.ErrSessionInvalid, "token=%q", tok)
	}

	other, err := NewManager(newFakeRedis(), "other-secret", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue(context.Background(), "u1", "a@b.com")
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), foreign.Token)
	require.ErrorIs(t, err, domain.ErrSessionInvalid)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	rdb := newFakeRedis()
	m := mustNewManager(t, rdb)
	start := time.Now()
	m.now = func() time.Time { return start }

	sess, err := m.Issue(context.Background(), "u1", "a@b.com")
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = m.Verify(context.Background(), sess.Token)
	require.ErrorIs(t, err, domain.ErrSessionInvalid)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	m := mustNewManager(t, newFakeRedis())
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1", ID: "x", Issuer: issuer})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), signed)
	require.ErrorIs(t, err, domain.ErrSessionInvalid)
}

func TestIssue_StoreError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.setErr = errors.New("connection refused")
	m := mustNewManager(t, rdb)

	_, err := m.Issue(context.Background(), "u1", "a@b.com")
	require.ErrorContains(t, err, "store session")
}

func TestVerify_LookupError(t *testing.T) {
	rdb := newFakeRedis()
	m := mustNewManager(t, rdb)
	sess, err := m.Issue(context.Background(), "u1", "a@b.com")
	require.NoError(t, err)

	rdb.getErr = errors.New("i/o timeout")
	_, err = m.Verify(context.Background(), sess.Token)
	require.ErrorContains(t, err, "lookup session")
	require.NotErrorIs(t, err, domain.ErrSessionInvalid)
}
