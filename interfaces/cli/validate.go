package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nosql/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Backend selection and its required settings
  - Durations, limits and logging options
  - Environment variable references (in strict mode)

Examples:
  nosql validate -c nosql.yaml
  nosql validate -c nosql.yaml --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if a.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loader := config.NewLoaderWithOptions(config.WithStrictEnv(opts.strict))
	cfg, err := loader.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Backend: %s\n", cfg.Backend)
	switch cfg.Backend {
	case "redis":
		fmt.Fprintf(a.stdout, "  Redis: %s (db %d)\n", cfg.Redis.Address, cfg.Redis.DB)
	case "badger":
		if cfg.Badger.InMemory {
			fmt.Fprintf(a.stdout, "  Badger: in memory\n")
		} else {
			fmt.Fprintf(a.stdout, "  Badger: %s\n", cfg.Badger.Dir)
		}
	}
	fmt.Fprintf(a.stdout, "  MongoDB: %s/%s.%s\n", cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection)
	fmt.Fprintf(a.stdout, "  Page TTL: %s\n", cfg.Page.TTL.Duration())
	return nil
}
