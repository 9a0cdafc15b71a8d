// Package credentials resolves the completion API key on every request.
// Sources return an empty key and a nil error when nothing is configured.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"spirolink-backend/internal/integrations/paramstore"
)

// Source resolves an API key.
type Source interface {
	APIKey(ctx context.Context) (string, error)
}

// Env reads the key from an environment variable on each call.
type Env struct {
	name   string
	lookup func(string) string
}

func NewEnv(name string) *Env {
	return &Env{name: name, lookup: os.Getenv}
}

func (e *Env) APIKey(_ context.Context) (string, error) {
	return strings.TrimSpace(e.lookup(e.name)), nil
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape accepted for a stored key.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStore reads the key from an SSM parameter on each call. The stored
// value may be the bare key or a {"token": "..."} document.
type ParamStore struct {
	getter Getter
	name   string
}

func NewParamStore(getter Getter, name string) (*ParamStore, error) {
	if getter == nil {
		return nil, errors.New("credentials: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credentials: parameter name must not be empty")
	}
	return &ParamStore{getter: getter, name: name}, nil
}

func (p *ParamStore) APIKey(ctx context.Context) (string, error) {
	raw, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		if errors.Is(err, paramstore.ErrParameterNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: fetch key from paramstore: %w", err)
	}
	return parseStoredKey(raw)
}

func parseStoredKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("credentials: unmarshal stored key as JSON: %w", err)
	}
	return strings.TrimSpace(tp.Token), nil
}

// Chain returns the first non-empty key among its sources, in order.
type Chain []Source

func (c Chain) APIKey(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		key, err := src.APIKey(ctx)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", nil
}
