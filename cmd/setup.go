package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/ui"
)

// SetupDatabase initializes the database and runs migrations, or reverts the newest one with --rollback.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	migrator := shared.NewMigrator(db, r.logger)

	if cmd.Bool("rollback") {
		mig, err := migrator.Rollback()
		if err != nil {
			return err
		}
		r.writePlain("%s Rolled back migration %s\n", ui.Success("✓"), mig)
		return nil
	}

	r.logger.Info("running database migrations")
	ran, err := migrator.Up()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v (%d migrations applied)", config.Database.Path, len(ran))

	r.writePlain("%s Database ready at %s\n", ui.Success("✓"), config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. ytpub secret set --file client_secret.json\n")
	r.writePlain("2. ytpub channel add --external-id UC... --name \"My Channel\" --owner you@example.com\n")
	r.writePlain("3. ytpub channel connect <channel id>\n")
	return nil
}

// SetupConfig writes the embedded example configuration.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("%s Config written to %s\n", ui.Success("✓"), configPath)
	return nil
}
