package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/catalogsync/internal/cataloging"
	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"github.com/spf13/cobra"
)

func newModuleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Add and remove modules",
	}

	cmd.AddCommand(newModuleAddCmd(opts))
	cmd.AddCommand(newModuleDeleteCmd(opts))

	return cmd
}

func newModuleAddCmd(opts *rootOptions) *cobra.Command {
	var m models.Module
	var contentType string
	var videoFile, audioFile, thumbnailFile string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a module, embedding any local media files",
		Long: `Adds a module to the catalog.

Local files passed with --video-file, --audio-file or --thumbnail-file are embedded
as data URIs. If the catalog store rejects the result as too large, oversized media
is dropped and the module is saved with metadata only.`,
		Example: `  catalogsync module add --id abc-song --title "Alphabet Song" --category songs \
    --thumbnail-file ./abc.png --video-url https://cdn.example.com/abc.mp4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			m.ContentType = models.ContentType(contentType)
			for _, f := range []struct {
				path  string
				field *string
			}{
				{videoFile, &m.VideoURL},
				{audioFile, &m.AudioURL},
				{thumbnailFile, &m.Thumbnail},
			} {
				if f.path == "" {
					continue
				}
				ref, err := putFile(a.blobs, f.path)
				if err != nil {
					return err
				}
				*f.field = ref
			}

			result, err := a.service.AddModule(cmd.Context(), &m)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&m.ID, "id", "", "Module identifier (required)")
	cmd.Flags().StringVar(&m.Title, "title", "", "Module title (required)")
	cmd.Flags().StringVar(&m.Description, "description", "", "Module description")
	cmd.Flags().StringVar(&m.Category, "category", "", "Category identifier")
	cmd.Flags().StringVar(&contentType, "content-type", string(models.ContentVideo), "Content type: video or audio")
	cmd.Flags().StringVar(&m.AgeGroup, "age-group", "", "Target age group, e.g. 3-5")
	cmd.Flags().StringVar(&m.Duration, "duration", "", "Running time, e.g. 4:30")
	cmd.Flags().StringSliceVar(&m.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().Float64Var(&m.Price, "price", 0, "Price")
	cmd.Flags().StringVar(&m.VideoURL, "video-url", "", "Remote video URL")
	cmd.Flags().StringVar(&m.AudioURL, "audio-url", "", "Remote audio URL")
	cmd.Flags().StringVar(&m.Thumbnail, "thumbnail-url", "", "Remote thumbnail URL")
	cmd.Flags().StringVar(&videoFile, "video-file", "", "Local video file to embed")
	cmd.Flags().StringVar(&audioFile, "audio-file", "", "Local audio file to embed")
	cmd.Flags().StringVar(&thumbnailFile, "thumbnail-file", "", "Local thumbnail image to embed")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("video-url", "video-file")
	cmd.MarkFlagsMutuallyExclusive("audio-url", "audio-file")
	cmd.MarkFlagsMutuallyExclusive("thumbnail-url", "thumbnail-file")

	return cmd
}

func newModuleDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "Delete modules and detach them from packages and bundles in one write",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.BulkDeleteModules(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
}

func newCategoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Delete and merge categories",
	}

	var fallback string
	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a category, moving its modules to --fallback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.DeleteCategory(cmd.Context(), args[0], fallback)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	deleteCmd.Flags().StringVar(&fallback, "fallback", "", "Category that receives the deleted category's modules")

	reassignCmd := &cobra.Command{
		Use:   "reassign FROM TO",
		Short: "Move every module in FROM to TO in a single write",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.ReassignCategory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.AddCommand(deleteCmd)
	cmd.AddCommand(reassignCmd)
	return cmd
}

func newEncodeCmd() *cobra.Command {
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "encode FILE",
		Short: "Print a file as a data URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs := media.NewMemBlobStore()
			defer blobs.Close()

			ref, err := putFile(blobs, args[0])
			if err != nil {
				return err
			}
			uri, err := media.NewEncoder(blobs).EncodeField(cmd.Context(), ref)
			if err != nil {
				return err
			}

			if summaryOnly {
				mimeType, _, err := media.ParseDataURI(uri)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s decoded, %s encoded\n",
					mimeType, media.HumanSize(media.DecodedSize(uri)), media.HumanSize(int64(len(uri))))
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), uri)
			return err
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print the MIME type and sizes instead of the URI")

	return cmd
}

// putFile copies a local file into blobs and returns its handle
func putFile(blobs *media.BlobStore, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	blob, err := blobs.Put(filepath.Base(path), "", f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return blob.Ref, nil
}

func printResult(w io.Writer, result cataloging.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
