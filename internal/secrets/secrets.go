// Package secrets is the gateway to named secrets: the shared OAuth client blob and one
// refresh token per connected account.
package secrets

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytpub/internal/shared"
)

// ErrNotFound reports that no secret exists under the requested name.
var ErrNotFound = fmt.Errorf("secret %w", shared.ErrNotFound)

// Store resolves named secrets within a project scope.
type Store interface {
	Secret(ctx context.Context, scope, key string) ([]byte, error)
}

// Writer is implemented by stores that accept new secret versions.
type Writer interface {
	Store
	PutSecret(ctx context.Context, scope, key string, value []byte) error
	DeleteSecret(ctx context.Context, scope, key string) error
}
