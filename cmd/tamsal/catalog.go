package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

func newCatalogCommand(get func() *app) *cobra.Command {
	var category, query string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			lang := a.cfg.Language()
			products := usecases.FilterProducts(a.store.Current().Products(), usecases.ProductFilter{
				Category: category,
				Query:    query,
				Language: lang,
			})
			printProducts(cmd.OutOrStdout(), products, lang)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", entities.CategoryAll, "category filter")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search text")
	return cmd
}

func printProducts(out io.Writer, products []entities.Product, lang entities.Language) {
	if len(products) == 0 {
		fmt.Fprintln(out, yellow("No products match."))
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, bold("ID\tNAME\tCATEGORY\tPRICE\tSTOCK"))
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s / %s\t%d\n",
			cyan(p.ID), p.Name.In(lang), gray(p.Category.In(lang)),
			green(entities.FormatPrice(p.Price)), p.Unit.In(lang), p.Stock)
	}
	tw.Flush()
}
