package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/export"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Read, export and mirror the catalog document",
	}

	cmd.AddCommand(newPullCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newMirrorCmd(opts))

	return cmd
}

func newPullCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch the catalog from the remote store and refresh the local mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.cache.Read(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := export.Summarize(entry.Document)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Catalog loaded from %s at %s\n", entry.Source, entry.LastFetchedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(cmd.OutOrStdout(), "Modules: %d  Packages: %d  Categories: %d  Bundles: %d  Orders: %d\n",
				summary.Collections["modules"],
				summary.Collections["packages"],
				summary.Collections["categories"],
				summary.Collections["contentBundles"],
				summary.Collections["purchases"])
			if len(summary.MetadataOnly) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Metadata only: %s\n", strings.Join(summary.MetadataOnly, ", "))
			}
			return nil
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var format string
	var full bool
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cached catalog",
		Example: `  # Browse the catalog structure
  catalogsync catalog show --format tree

  # Print counts and degraded entities as YAML
  catalogsync catalog show --summary --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.cache.Read(cmd.Context())
			if err != nil {
				return err
			}

			if format == "" {
				format = defaultFormat(cmd.OutOrStdout())
			}

			var v any = entry.Document
			if summaryOnly {
				s, err := export.Summarize(entry.Document)
				if err != nil {
					return err
				}
				v = s
			}
			return render(cmd.OutOrStdout(), format, v, entry.Document, full)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: tree, json or yaml (tree on a terminal, json otherwise)")
	cmd.Flags().BoolVar(&full, "full", false, "Print embedded media in full instead of a size placeholder")
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print collection counts and media status only")

	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to a file",
		Example: `  # Module rows for analytics
  catalogsync catalog export --format parquet --output modules.parquet

  # Full document including media
  catalogsync catalog export --format json --output catalog.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.cache.Read(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			switch format {
			case "parquet":
				n, err := export.WriteParquet(f, entry.Document)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d module rows to %s\n", n, output)
			case "json":
				if err := export.WriteJSON(f, entry.Document, true); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote catalog to %s\n", output)
			case "yaml":
				if err := export.WriteYAML(f, entry.Document, true); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote catalog to %s\n", output)
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "parquet", "Export format: parquet, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newMirrorCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage the local catalog mirror",
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the local mirror and drop the in-memory copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Clear the local catalog mirror?") {
				return fmt.Errorf("aborted")
			}

			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cache.ClearMirror(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Mirror cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(clearCmd)
	return cmd
}

func render(w io.Writer, format string, v any, doc *models.CatalogDocument, full bool) error {
	switch format {
	case "tree":
		_, err := fmt.Fprint(w, export.Tree(doc, "catalog"))
		return err
	case "json":
		return export.WriteJSON(w, v, full)
	case "yaml":
		return export.WriteYAML(w, v, full)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// defaultFormat picks the tree view for people and JSON for pipes
func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "tree"
	}
	return "json"
}

// confirm asks a yes/no question; a non-interactive stdin counts as no
func confirm(in io.Reader, out io.Writer, question string) bool {
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false
	}
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
