package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/secrets"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/ui"
)

// SecretSet stores the shared OAuth client blob read from a file or stdin.
func (r *Runner) SecretSet(ctx context.Context, cmd *cli.Command, a *app) error {
	w, ok := a.secrets.(secrets.Writer)
	if !ok {
		return fmt.Errorf("%w: secrets kind %q is read-only", shared.ErrInvalidConfig, r.config.Secrets.Kind)
	}

	key := cmd.String("key")
	if key == "" {
		key = r.config.YouTube.ClientSecretKey
	}

	var (
		data []byte
		err  error
	)
	if path := cmd.String("file"); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(r.input)
	}
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}

	if !json.Valid(data) {
		return fmt.Errorf("%w: client secret must be the JSON file from the Google Cloud console", shared.ErrInvalidInput)
	}

	if err := w.PutSecret(ctx, r.config.YouTube.Project, key, data); err != nil {
		return err
	}

	// OAuthConfig parses the blob the same way publishes will.
	if _, err := a.resolver.OAuthConfig(ctx); err != nil && key == r.config.YouTube.ClientSecretKey {
		r.logger.Warn("stored client secret does not parse", "key", key, "error", err)
		r.writePlain("%s Stored %s, but it is not a usable OAuth client: %v\n", ui.Warning("!"), key, err)
		return nil
	}

	r.logger.Info("secret stored", "project", r.config.YouTube.Project, "key", key)
	r.writePlain("%s Stored %s (%d bytes)\n", ui.Success("✓"), key, len(data))
	return nil
}
