package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/catalogsync/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// load reads configuration and wires the component graph
func (o *rootOptions) load() (*app, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogsync",
		Short: "Catalog cache, sync and media persistence for the kids' learning catalog",
		Long: `Catalogsync keeps a local, always-readable copy of the catalog document and
applies edits to modules, packages, categories, bundles and orders against the remote store.

Media attached to entities is embedded as data URIs. When the remote store refuses a
write because it is too large, oversized media is stripped and the entity is saved
with metadata only.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCatalogCmd(opts))
	cmd.AddCommand(newModuleCmd(opts))
	cmd.AddCommand(newCategoryCmd(opts))
	cmd.AddCommand(newEncodeCmd())

	return cmd
}
