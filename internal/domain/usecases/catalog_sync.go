package usecases

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tamsal/storefront/internal/domain/ports"
)

// CatalogSyncUseCase loads catalog files into the store and reloads them on change.
// Single Responsibility: only catalog ingestion.
type CatalogSyncUseCase struct {
	loader ports.CatalogLoader
	store  *CatalogStore
}

// NewCatalogSyncUseCase creates a CatalogSyncUseCase with injected dependencies.
func NewCatalogSyncUseCase(loader ports.CatalogLoader, store *CatalogStore) *CatalogSyncUseCase {
	return &CatalogSyncUseCase{loader: loader, store: store}
}

// Sync loads path and installs the result. On error the current snapshot stays active.
func (uc *CatalogSyncUseCase) Sync(ctx context.Context, path string) (*Catalog, error) {
	data, err := uc.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %q: %w", path, err)
	}
	if len(data.Products) == 0 {
		return nil, fmt.Errorf("catalog %q has no products", path)
	}
	catalog := NewCatalog(data)
	uc.store.Replace(catalog)
	return catalog, nil
}

// Run reloads path whenever events report it created or modified, until events closes
// or ctx is done. onReload is called after every attempt with the loaded catalog or the error.
func (uc *CatalogSyncUseCase) Run(ctx context.Context, path string, events <-chan ports.FileEvent, onReload func(*Catalog, error)) {
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Path) != target || ev.Operation == ports.FileDeleted {
				continue
			}
			catalog, err := uc.Sync(ctx, path)
			if onReload != nil {
				onReload(catalog, err)
			}
		}
	}
}
