package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamsal/storefront/internal/adapters/loader"
	"github.com/tamsal/storefront/internal/config"
	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

func init() {
	color.NoColor = true
}

func TestPrintProducts(t *testing.T) {
	catalog := usecases.NewCatalog(loader.Default())
	products := usecases.FilterProducts(catalog.Products(), usecases.ProductFilter{Query: "marble", Language: entities.English})

	var buf bytes.Buffer
	printProducts(&buf, products, entities.English)

	assert.Contains(t, buf.String(), "pvc-1")
	assert.Contains(t, buf.String(), "350 KGS / pcs")
	assert.NotContains(t, buf.String(), "lam-1")
}

func TestPrintProducts_Empty(t *testing.T) {
	var buf bytes.Buffer
	printProducts(&buf, nil, entities.English)
	assert.Contains(t, buf.String(), "No products match.")
}

func TestPrintEstimate(t *testing.T) {
	catalog := usecases.NewCatalog(loader.Default())

	var buf bytes.Buffer
	printEstimate(&buf, catalog, &entities.EstimationResult{
		Text:           "Laminate for a 20 sq.m floor.",
		SuggestedItems: []entities.SuggestedItem{{ID: "lam-1", Quantity: 20}, {ID: "ghost", Quantity: 2}},
	}, entities.English)

	out := buf.String()
	assert.Contains(t, out, "Laminate for a 20 sq.m floor.")
	assert.Contains(t, out, "20 sq.m x 850 KGS = 17000 KGS")
	assert.Contains(t, out, "Total: 17000 KGS")
	assert.NotContains(t, out, "ghost")
}

func TestPrintEstimate_Unavailable(t *testing.T) {
	var buf bytes.Buffer
	printEstimate(&buf, usecases.NewCatalog(nil), nil, entities.English)
	assert.Contains(t, buf.String(), "unavailable")
}

func TestLocationsCommand_Index(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Language = "en"
	a := &app{
		cfg:     cfg,
		locator: usecases.NewLocator(usecases.NewCatalogStore(usecases.NewCatalog(loader.Default()))),
	}
	run := func(args ...string) (string, error) {
		cmd := newLocationsCommand(func() *app { return a })
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SilenceUsage, cmd.SilenceErrors = true, true
		cmd.SetArgs(args)
		err := cmd.Execute()
		return buf.String(), err
	}

	all, err := run()
	require.NoError(t, err)
	assert.Contains(t, all, "Main Showroom - Asanaliev")
	assert.Contains(t, all, "Warehouse North - Dordoi")

	one, err := run("--index", "1")
	require.NoError(t, err)
	assert.Contains(t, one, "Warehouse North - Dordoi")
	assert.Contains(t, one, "https://2gis.kg/bishkek/search/Dordoi%20Market")
	assert.NotContains(t, one, "Asanaliev")

	_, err = run("--index", "7")
	assert.Error(t, err)
}
