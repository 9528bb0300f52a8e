package credentials

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// EnvFallback answers Gets missing from the wrapped KeyValue with
// environment variables, e.g. "openai/api_key" from OPENAI_API_KEY.
// Writes always go to the wrapped store.
type EnvFallback struct {
	KeyValue

	vars   map[string]string
	lookup func(string) (string, bool)
}

// NewEnvFallback maps store keys to environment variable names.
func NewEnvFallback(kv KeyValue, vars map[string]string) *EnvFallback {
	return &EnvFallback{KeyValue: kv, vars: vars, lookup: os.LookupEnv}
}

func (e *EnvFallback) Get(ctx context.Context, key string) (string, error) {
	v, err := e.KeyValue.Get(ctx, key)
	if !errors.Is(err, ErrNotFound) {
		return v, err
	}

	name, ok := e.vars[key]
	if !ok {
		return "", ErrNotFound
	}
	if v, ok := e.lookup(name); ok && v != "" {
		slog.Debug("Using credential from environment", "key", key, "env", name)
		return v, nil
	}
	return "", ErrNotFound
}
