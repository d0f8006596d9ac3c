package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tamsal/storefront/internal/adapters/llm"
	"github.com/tamsal/storefront/internal/adapters/loader"
	"github.com/tamsal/storefront/internal/adapters/metrics"
	"github.com/tamsal/storefront/internal/config"
	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// app holds everything a command needs once configuration is resolved.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	loader    *loader.YAMLLoader
	store     *usecases.CatalogStore
	sync      *usecases.CatalogSyncUseCase
	observer  ports.CallObserver
	estimator *usecases.EstimationUseCase
	chat      *usecases.ChatUseCase
	locator   *usecases.Locator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := cfg.NewLogger(os.Stderr)

	a := &app{
		cfg:    cfg,
		log:    log,
		loader: loader.NewYAMLLoader(),
		store:  usecases.NewCatalogStore(nil),
	}
	a.sync = usecases.NewCatalogSyncUseCase(a.loader, a.store)
	catalog, err := a.sync.Sync(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"products":  catalog.Len(),
		"locations": len(catalog.Locations()),
		"path":      cfg.Catalog.Path,
	}).Info("catalog loaded")

	observer, err := metrics.NewPrometheusObserver("tamsal", nil)
	if err != nil {
		return nil, err
	}
	a.observer = observer

	gen := llm.NewGeminiAdapter(cfg.Gemini(), log)
	a.estimator = usecases.NewEstimationUseCase(gen, a.store, observer)
	a.chat = usecases.NewChatUseCase(gen, observer)
	a.locator = usecases.NewLocator(a.store)
	return a, nil
}

func (a *app) language(code string) (entities.Language, error) {
	if code == "" {
		return a.cfg.Language(), nil
	}
	return entities.ParseLanguage(code)
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		current    *app
	)
	v := config.New()

	root := &cobra.Command{
		Use:           "tamsal",
		Short:         "TamSal building materials storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
				return err
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			current, err = newApp(cmd.Context(), cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./tamsal.yaml)")
	root.PersistentFlags().String("catalog", "", "catalog file (default: built-in catalog)")
	root.PersistentFlags().String("log-level", "info", "log level")
	root.PersistentFlags().String("lang", "", "display language (en, ky, ru)")

	get := func() *app { return current }
	root.AddCommand(
		newServeCommand(get),
		newCatalogCommand(get),
		newEstimateCommand(get),
		newChatCommand(get),
		newLocationsCommand(get),
	)
	return root
}

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	"catalog":   "catalog.path",
	"log-level": "log.level",
	"lang":      "store.language",
	"addr":      "server.addr",
	"watch":     "catalog.watch",
}
