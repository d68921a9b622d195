// Package cli implements the raffle-admin operator commands.
package cli

import (
	"context"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/ArowuTest/team-raffle-backend/internal/store"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	SeedFile  string
	Format    string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// env is what a command needs to act on the store
type env struct {
	cfg       *config.Config
	repos     repositories.Repositories
	catalog   *seed.Catalog
	lifecycle *services.LifecycleServiceImpl
	close     func()
}

// NewRootCommand creates the root command of raffle-admin.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "raffle-admin",
		Short: "Operate team raffles",
		Long:  "Provision, open, reset and inspect team raffles directly against the configured store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", ".", "directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&opts.SeedFile, "seed", "", "seed catalog file (defaults to raffle.seedfile)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewOpenCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewImportCSVCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand())

	return cmd
}

// openEnv loads configuration and the seed catalog and connects to the store
func openEnv(ctx context.Context, opts *RootOptions) (*env, error) {
	cfg, err := config.LoadFrom(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	seedFile := opts.SeedFile
	if seedFile == "" {
		seedFile = cfg.Raffle.SeedFile
	}
	catalog, err := seed.Load(seedFile)
	if err != nil {
		return nil, err
	}
	repos, closeFn, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:       cfg,
		repos:     repos,
		catalog:   catalog,
		lifecycle: services.NewLifecycleService(repos, catalog),
		close:     closeFn,
	}, nil
}
