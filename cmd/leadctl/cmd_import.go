package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadbook/internal/client"
)

func newImportCmd() *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import buyers from a CSV file",
		Long: `Upload a CSV of buyers. The import is all or nothing: if any row is
invalid, every problem is listed and no buyer is stored. Use --preview to
validate without storing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			if preview {
				res, err := apiClient.Preview(cmd.Context(), f)
				if err != nil {
					return reportError(cmd, err)
				}
				fmt.Fprintf(out, "%d rows, %d valid\n", res.TotalRows, res.ValidRows)
				for _, re := range res.Errors {
					fmt.Fprintf(out, "  row %d: %s\n", re.Row, re.Message)
				}
				return nil
			}

			res, err := apiClient.Import(cmd.Context(), f)
			if err != nil {
				return reportError(cmd, err)
			}
			fmt.Fprintf(out, "Imported %d buyers\n", res.InsertedCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Validate only, store nothing")
	return cmd
}

// reportError prints the row and field details of an API error to stderr.
func reportError(cmd *cobra.Command, err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	w := cmd.ErrOrStderr()
	for _, re := range apiErr.Rows {
		fmt.Fprintf(w, "  row %d: %s\n", re.Row, re.Message)
	}
	for _, fe := range apiErr.Fields {
		fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Message)
	}
	return err
}
