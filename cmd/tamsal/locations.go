package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

func newLocationsCommand(get func() *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:     "locations",
		Short:   "List store locations with map links",
		Example: "  tamsal locations --index 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			lang := a.cfg.Language()
			out := cmd.OutOrStdout()
			if index < 0 {
				for _, loc := range a.locator.Locations() {
					printLocation(out, loc, lang)
				}
				return nil
			}
			loc, err := a.locator.Location(index)
			if err != nil {
				return err
			}
			printLocation(out, loc, lang)
			return nil
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", -1, "show only the location at this position")
	return cmd
}

func printLocation(out io.Writer, loc entities.StoreLocation, lang entities.Language) {
	links := usecases.MapLinksFor(loc)
	fmt.Fprintln(out, bold(loc.Name.In(lang)))
	fmt.Fprintf(out, "  %s\n", loc.Address.In(lang))
	fmt.Fprintf(out, "  2GIS:        %s\n", cyan(links.TwoGIS))
	fmt.Fprintf(out, "  Google Maps: %s\n\n", cyan(links.GoogleMaps))
}
