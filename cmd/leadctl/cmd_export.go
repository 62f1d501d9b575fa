package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		outputPath string
		format     string
		archive    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every buyer as CSV or XLSX",
		Long: `Download all buyers, most recently updated first. With --archive the
server stores the export in its configured bucket instead and prints the
object location.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if archive {
				res, err := apiClient.Archive(ctx, format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived %d bytes to %s\n", res.Bytes, res.Location)
				return nil
			}

			if outputPath == "" {
				outputPath = "buyers_export." + format
			}

			var w io.Writer = cmd.OutOrStdout()
			if outputPath != "-" {
				f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := apiClient.Export(ctx, format, w)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if outputPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d bytes to %s\n", n, outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: buyers_export.<format>, use - for stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv|xlsx")
	cmd.Flags().BoolVar(&archive, "archive", false, "Store the export in object storage")
	return cmd
}
