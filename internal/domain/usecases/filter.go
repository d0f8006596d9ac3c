package usecases

import (
	"strings"

	"github.com/tamsal/storefront/internal/domain/entities"
)

// ProductFilter is the catalog view state: active category, search text, display language.
type ProductFilter struct {
	Category string
	Query    string
	Language entities.Language
}

// FilterProducts returns the products visible under f, preserving order.
// The result is never nil, so an empty match differs from "not computed".
func FilterProducts(products []entities.Product, f ProductFilter) []entities.Product {
	lang := f.Language
	if lang == "" {
		lang = entities.DefaultLanguage
	}
	query := strings.ToLower(f.Query)

	out := make([]entities.Product, 0, len(products))
	for _, p := range products {
		if !matchesCategory(p, f.Category, lang) {
			continue
		}
		if !matchesQuery(p, query, lang) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesCategory(p entities.Product, category string, lang entities.Language) bool {
	if category == "" || category == entities.CategoryAll {
		return true
	}
	return p.Category.In(entities.ReferenceLanguage) == category || p.Category.In(lang) == category
}

func matchesQuery(p entities.Product, query string, lang entities.Language) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name.In(lang)), query) ||
		strings.Contains(strings.ToLower(p.Description.In(lang)), query)
}
