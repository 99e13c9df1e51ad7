package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/country-explorer/internal/directory"
)

// countries: load the directory and print the filtered view.
func countriesCmd(a *app) *cobra.Command {
	var cr directory.Criteria

	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List countries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.directory.LoadAll(cmd.Context()); err != nil {
				return err
			}

			view := a.directory.View(cr)
			if len(view.Countries) == 0 {
				printf(cmd.OutOrStdout(), "No countries match your filters.\n")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "CODE\tNAME\tREGION\tCAPITAL\n")
			for _, c := range view.Countries {
				printf(tw, "%s\t%s\t%s\t%s\n", c.Code, c.CommonName, c.Region, strings.Join(c.Capital, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%d countries\n", len(view.Countries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&cr.Query, "query", "q", "", "match name, official name or capital")
	cmd.Flags().StringVar(&cr.Region, "region", "", "exact region: Africa, Americas, Asia, Europe or Oceania")
	cmd.Flags().StringVar(&cr.Language, "language", "", "exact language name, e.g. French")
	return cmd
}

// show: look up one country (alpha-3 or alpha-2) with its neighbors.
func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show CODE",
		Short: "Show one country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			country, err := a.directory.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			neighbors, err := a.directory.Neighbors(ctx, country)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			star := ""
			if a.favorites.Has(country.Code) {
				star = " ★"
			}
			printf(out, "%s (%s)%s\n", country.CommonName, country.Code, star)
			printf(out, "  Official name: %s\n", country.OfficialName)
			printf(out, "  Capital:       %s\n", strings.Join(country.Capital, ", "))
			printf(out, "  Region:        %s / %s\n", country.Region, country.Subregion)
			printf(out, "  Population:    %d\n", country.Population)
			if len(neighbors) > 0 {
				names := make([]string, len(neighbors))
				for i, n := range neighbors {
					names[i] = fmt.Sprintf("%s (%s)", n.Name, n.Code)
				}
				printf(out, "  Neighbors:     %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
