package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadbook/internal/client"
)

func newListCmd() *cobra.Command {
	var opts client.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List buyers, newest update first",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := apiClient.ListBuyers(cmd.Context(), opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tCITY\tTYPE\tSTATUS\tUPDATED")
			for _, b := range page.Buyers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					b.ID, b.FullName, b.Phone, b.City, b.PropertyType, b.Status,
					b.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d buyers)\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Page, "page", 1, "Page number")
	f.StringVar(&opts.City, "city", "", "Filter by city")
	f.StringVar(&opts.PropertyType, "property-type", "", "Filter by property type")
	f.StringVar(&opts.Status, "status", "", "Filter by status")
	f.StringVar(&opts.Timeline, "timeline", "", "Filter by timeline code")
	f.StringVar(&opts.Search, "search", "", "Search name, email or phone")
	return cmd
}
