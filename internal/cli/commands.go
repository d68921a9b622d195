package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [team...]",
		Short: "Write the provisioned records of teams",
		Long: `Write roster, slot pool and prize pool of the named teams from the seed catalog
and delete their results. Without arguments every team in the catalog is seeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			teams := args
			if len(teams) == 0 {
				teams = e.catalog.TeamNames()
			}
			for _, team := range teams {
				if err := e.lifecycle.Provision(cmd.Context(), team); err != nil {
					return fmt.Errorf("seed %s: %w", team, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", team)
			}
			return nil
		},
	}
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <team>",
		Short: "Start accepting claims for a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.lifecycle.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opened %s\n", args[0])
			return nil
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <team>",
		Short: "Restore a team to its provisioned state",
		Long: `Restore the slot pool and roster of a team from the seed catalog and delete its
results. If a step fails the command reports it; running reset again is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.lifecycle.Reset(cmd.Context(), args[0]); err != nil {
				var resetErr *services.ResetError
				if errors.As(err, &resetErr) {
					return fmt.Errorf("reset stopped at %s step, re-run to finish: %w", resetErr.Step, resetErr.Err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", args[0])
			return nil
		},
	}
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results <team>",
		Short: "Print the allocation of a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			allocation := services.NewAllocationService(e.repos, e.cfg.Raffle.LowestPrize)
			results, err := allocation.Results(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), rootOpts.Format, results)
		},
	}
}

// NewHashPasswordCommand creates the hash-password command.
func NewHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for auth.facilitatorpasswordhash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

// NewImportCSVCommand creates the import-csv command.
func NewImportCSVCommand(rootOpts *RootOptions) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "import-csv <team> <file.csv>",
		Short: "Build a team seed from a roster CSV",
		Long: `Read a roster CSV with code, name and prize columns and add the team to the seed
catalog, replacing an existing entry. The merged catalog is printed unless --write is
given. Run seed or reset afterwards to apply it to the store.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seedFile, err := seedPath(rootOpts)
			if err != nil {
				return err
			}

			catalog, err := seed.Load(seedFile)
			if errors.Is(err, fs.ErrNotExist) {
				catalog = &seed.Catalog{}
			} else if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			team, err := seed.ImportCSV(f, args[0])
			if err != nil {
				return fmt.Errorf("import %s: %w", args[1], err)
			}
			if err := catalog.Put(team); err != nil {
				return err
			}

			data, err := catalog.Marshal()
			if err != nil {
				return err
			}
			if !write {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(seedFile, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d members into %s (%s)\n", len(team.Members), team.TeamName, seedFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "write the merged catalog back to the seed file")
	return cmd
}

// seedPath is the --seed flag, falling back to raffle.seedfile from the configuration
func seedPath(opts *RootOptions) (string, error) {
	if opts.SeedFile != "" {
		return opts.SeedFile, nil
	}
	cfg, err := config.LoadFrom(opts.ConfigDir)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Raffle.SeedFile, nil
}

func writeResults(w io.Writer, format string, results *models.Results) error {
	views := services.ResultViews(results)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	for _, v := range views {
		if _, err := fmt.Fprintf(w, "%-24s %-6s %12s\n", v.Name, v.Option, v.PrizeDisplay); err != nil {
			return err
		}
	}
	return nil
}
