package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvStore reads secrets from environment variables named PREFIX_SCOPE_KEY, upper-cased
// with "-" and "." turned into "_". It is read-only.
type EnvStore struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvStore creates an [EnvStore] reading from the process environment.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix, lookup: os.LookupEnv}
}

// VarName returns the environment variable consulted for key in scope.
func (s *EnvStore) VarName(scope, key string) string {
	r := strings.NewReplacer("-", "_", ".", "_", "/", "_")
	parts := []string{s.prefix, scope, key}
	if s.prefix == "" {
		parts = parts[1:]
	}
	return strings.ToUpper(r.Replace(strings.Join(parts, "_")))
}

// Secret returns the variable's value, treating an empty value as missing.
func (s *EnvStore) Secret(_ context.Context, scope, key string) ([]byte, error) {
	name := s.VarName(scope, key)
	value, ok := s.lookup(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return []byte(value), nil
}
