package usecases

import (
	"fmt"
	"strconv"

	"github.com/tamsal/storefront/internal/domain/entities"
)

// MapLinks are the external map deep links for one location.
type MapLinks struct {
	TwoGIS      string `json:"twoGis"`
	GoogleMaps  string `json:"googleMaps"`
	GoogleEmbed string `json:"googleEmbed"`
}

// Locator serves the store-locator view.
type Locator struct {
	catalog *CatalogStore
}

// NewLocator creates a Locator reading locations from the current catalog.
func NewLocator(catalog *CatalogStore) *Locator {
	return &Locator{catalog: catalog}
}

// Locations returns every store location.
func (l *Locator) Locations() []entities.StoreLocation {
	return l.catalog.Current().Locations()
}

// Location returns the location at index i.
func (l *Locator) Location(i int) (entities.StoreLocation, error) {
	locs := l.catalog.Current().Locations()
	if i < 0 || i >= len(locs) {
		return entities.StoreLocation{}, fmt.Errorf("location %d out of range [0,%d)", i, len(locs))
	}
	return locs[i], nil
}

// MapLinksFor builds the 2GIS and Google Maps links for loc.
func MapLinksFor(loc entities.StoreLocation) MapLinks {
	q := formatCoord(loc.Coords.Lat) + "," + formatCoord(loc.Coords.Lng)
	return MapLinks{
		TwoGIS:      loc.TwoGISURL,
		GoogleMaps:  "https://www.google.com/maps/search/?api=1&query=" + q,
		GoogleEmbed: "https://maps.google.com/maps?q=" + q + "&t=&z=15&ie=UTF8&iwloc=&output=embed",
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
