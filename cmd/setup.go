package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then creates and migrates the token database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	if changed := applyCredentialFlags(cmd, &config.Credentials.Spotify); changed {
		if err := shared.SaveConfig(configPath, config); err != nil {
			return err
		}
		r.logger.Info("credentials saved", "path", configPath)
	}

	if cmd.Bool("rollback") {
		return r.rollback(config.Database)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.OpenMigrated(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Database: %s\n", config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify in %s (or SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REDIRECT_URI)\n", configPath)
	r.writePlain("2. Run 'soundcheck serve' to start the backend\n")
	r.writePlain("3. Run 'soundcheck login' to authorize\n")
	return nil
}

func applyCredentialFlags(cmd *cli.Command, creds *shared.SpotifyConfig) bool {
	changed := false
	for flag, field := range map[string]*string{
		"client-id":     &creds.ClientID,
		"client-secret": &creds.ClientSecret,
		"redirect-uri":  &creds.RedirectURI,
	} {
		if v := cmd.String(flag); v != "" {
			*field = v
			changed = true
		}
	}
	return changed
}

func (r *Runner) rollback(cfg shared.DatabaseConfig) error {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	r.logger.Warn("rolled back latest migration", "path", cfg.Path)
	return r.writePlain("✓ Rolled back latest migration on %s\n", cfg.Path)
}
