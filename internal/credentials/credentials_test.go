package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"spirolink-backend/internal/integrations/paramstore"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.val, f.err
}

func TestEnv_ReadsOnEveryCall(t *testing.T) {
	vals := map[string]string{}
	e := &Env{name: "OPENAI_API_KEY", lookup: func(k string) string { return vals[k] }}

	key, err := e.APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)

	vals["OPENAI_API_KEY"] = "  sk-added-later  "
	key, err = e.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-added-later", key)
}

func TestEnv_UsesProcessEnvironment(t *testing.T) {
	t.Setenv("SPIROLINK_TEST_KEY", "sk-env")
	key, err := NewEnv("SPIROLINK_TEST_KEY").APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)
}

func TestNewParamStore_Validates(t *testing.T) {
	_, err := NewParamStore(nil, "/spirolink/openai")
	require.Error(t, err)

	_, err = NewParamStore(&fakeGetter{}, " ")
	require.Error(t, err)
}

func TestParamStore_APIKey(t *testing.T) {
	cases := []struct {
		name    string
		getter  *fakeGetter
		want    string
		wantErr string
	}{
		{name: "bare value", getter: &fakeGetter{val: "sk-bare"}, want: "sk-bare"},
		{name: "json token", getter: &fakeGetter{val: `{"token":"sk-json"}`}, want: "sk-json"},
		{name: "json without token", getter: &fakeGetter{val: `{"other":"x"}`}, want: ""},
		{name: "malformed json", getter: &fakeGetter{val: `{"broken`}, wantErr: "unmarshal"},
		{name: "not found", getter: &fakeGetter{err: fmt.Errorf("%w: %q", paramstore.ErrParameterNotFound, "/x")}, want: ""},
		{name: "ssm failure", getter: &fakeGetter{err: errors.New("ssm unavailable")}, wantErr: "ssm unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := NewParamStore(tc.getter, "/spirolink/openai")
			require.NoError(t, err)

			key, err := src.APIKey(context.Background())
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, key)
		})
	}
}

func TestParamStore_NotCached(t *testing.T) {
	g := &fakeGetter{val: "sk-1"}
	src, err := NewParamStore(g, "/spirolink/openai")
	require.NoError(t, err)

	_, _ = src.APIKey(context.Background())
	g.val = "sk-2"
	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-2", key)
	require.Equal(t, 2, g.calls)
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	empty := &Env{name: "K", lookup: func(string) string { return "" }}
	set := &Env{name: "K", lookup: func(string) string { return "sk-second" }}

	key, err := Chain{nil, empty, set}.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-second", key)

	key, err = Chain{empty}.APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestChain_StopsOnError(t *testing.T) {
	failing, err := NewParamStore(&fakeGetter{err: errors.New("boom")}, "/x")
	require.NoError(t, err)
	set := &Env{name: "K", lookup: func(string) string { return "sk" }}

	_, err = Chain{failing, set}.APIKey(context.Background())
	require.ErrorContains(t, err, "boom")
}
