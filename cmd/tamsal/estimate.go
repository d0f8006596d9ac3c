package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

func newEstimateCommand(get func() *app) *cobra.Command {
	var project, dimensions string
	cmd := &cobra.Command{
		Use:     "estimate",
		Short:   "Estimate materials for a renovation project",
		Example: `  tamsal estimate --project "bedroom floor" --dimensions "4m x 5m"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			req := usecases.EstimationRequest{ProjectType: project, Dimensions: dimensions, Language: a.cfg.Language()}
			if err := req.Validate(); err != nil {
				return err
			}

			outcome := a.estimator.EstimateOutcome(cmd.Context(), req)
			if outcome.Failure != usecases.FailureNone {
				a.log.WithFields(logrus.Fields{"failure": outcome.Failure.Label()}).WithError(outcome.Err).Debug("estimation failed")
			}
			printEstimate(cmd.OutOrStdout(), a.store.Current(), outcome.Result, req.Language)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project type, e.g. \"bathroom walls\"")
	cmd.Flags().StringVarP(&dimensions, "dimensions", "d", "", "room dimensions, e.g. \"3m x 2.5m\"")
	return cmd
}

func printEstimate(out io.Writer, catalog *usecases.Catalog, result *entities.EstimationResult, lang entities.Language) {
	if result == nil {
		fmt.Fprintln(out, red("Estimation is unavailable right now. Please try again later."))
		return
	}
	fmt.Fprintln(out, result.Text)

	list := usecases.ResolveSuggestions(catalog, result)
	if len(list.Lines) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, bold("Suggested items"))
	for _, l := range list.Lines {
		fmt.Fprintf(out, "  %s  %d %s x %s = %s\n",
			l.Product.Name.In(lang), l.Quantity, l.Product.Unit.In(lang),
			entities.FormatPrice(l.Product.Price), green(entities.FormatPrice(l.LineTotal)))
	}
	fmt.Fprintf(out, "%s %s\n", bold("Total:"), green(entities.FormatPrice(list.Total)))
}
