// Package loader provides catalog loading adapters.
// Clean Architecture: Adapter implementing ports.CatalogLoader.
package loader

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// YAMLLoader loads catalog files. JSON files are accepted too, as YAML is a superset.
type YAMLLoader struct{}

// NewYAMLLoader creates a new catalog loader.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

type catalogFile struct {
	Categories []string       `yaml:"categories"`
	Products   []productFile  `yaml:"products"`
	Locations  []locationFile `yaml:"locations"`
}

type productFile struct {
	ID          string            `yaml:"id"`
	Name        map[string]string `yaml:"name"`
	Category    map[string]string `yaml:"category"`
	Unit        map[string]string `yaml:"unit"`
	Description map[string]string `yaml:"description"`
	Price       int64             `yaml:"price"`
	Stock       int               `yaml:"stock"`
	Image       string            `yaml:"image"`
}

type locationFile struct {
	Name    map[string]string `yaml:"name"`
	Address map[string]string `yaml:"address"`
	Coords  struct {
		Lat float64 `yaml:"lat"`
		Lng float64 `yaml:"lng"`
	} `yaml:"coords"`
	TwoGISURL string `yaml:"twoGisUrl"`
}

// Load reads the catalog at path. An empty path loads the built-in catalog.
func (l *YAMLLoader) Load(ctx context.Context, path string) (*ports.CatalogData, error) {
	if path == "" {
		return Parse(bytes.NewReader(defaultCatalog))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// SupportedExtensions returns file extensions this loader handles.
func (l *YAMLLoader) SupportedExtensions() []string {
	return []string{".yaml", ".yml", ".json"}
}

// Default returns the built-in catalog.
func Default() *ports.CatalogData {
	data, err := Parse(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return data
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) (*ports.CatalogData, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	data := &ports.CatalogData{Categories: file.Categories}
	seen := make(map[string]bool, len(file.Products))
	for i, pf := range file.Products {
		p, err := pf.toProduct()
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		data.Products = append(data.Products, p)
	}

	for i, lf := range file.Locations {
		loc, err := lf.toLocation()
		if err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
		data.Locations = append(data.Locations, loc)
	}
	return data, nil
}

func (pf productFile) toProduct() (entities.Product, error) {
	if pf.ID == "" {
		return entities.Product{}, errors.New("id is required")
	}
	if pf.Price < 0 {
		return entities.Product{}, fmt.Errorf("%s: negative price", pf.ID)
	}
	if pf.Stock < 0 {
		return entities.Product{}, fmt.Errorf("%s: negative stock", pf.ID)
	}

	p := entities.Product{ID: pf.ID, Price: pf.Price, Stock: pf.Stock, Image: pf.Image}
	fields := []struct {
		name string
		src  map[string]string
		dst  *entities.LocalizedText
	}{
		{"name", pf.Name, &p.Name},
		{"category", pf.Category, &p.Category},
		{"unit", pf.Unit, &p.Unit},
		{"description", pf.Description, &p.Description},
	}
	for _, f := range fields {
		text, err := localized(f.src)
		if err != nil {
			return entities.Product{}, fmt.Errorf("%s: %s: %w", pf.ID, f.name, err)
		}
		*f.dst = text
	}
	if p.Name[entities.ReferenceLanguage] == "" {
		return entities.Product{}, fmt.Errorf("%s: name has no %s text", pf.ID, entities.ReferenceLanguage)
	}
	return p, nil
}

func (lf locationFile) toLocation() (entities.StoreLocation, error) {
	name, err := localized(lf.Name)
	if err != nil {
		return entities.StoreLocation{}, fmt.Errorf("name: %w", err)
	}
	address, err := localized(lf.Address)
	if err != nil {
		return entities.StoreLocation{}, fmt.Errorf("address: %w", err)
	}
	return entities.StoreLocation{
		Name:      name,
		Address:   address,
		Coords:    entities.Coordinates{Lat: lf.Coords.Lat, Lng: lf.Coords.Lng},
		TwoGISURL: lf.TwoGISURL,
	}, nil
}

func localized(src map[string]string) (entities.LocalizedText, error) {
	out := make(entities.LocalizedText, len(src))
	for code, s := range src {
		lang, err := entities.ParseLanguage(code)
		if err != nil {
			return nil, err
		}
		out[lang] = s
	}
	return out, nil
}
