// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"fmt"
	"strings"
)

// Currency is the single currency every price is quoted in.
const Currency = "KGS"

// CategoryAll is the filter sentinel that matches every category.
const CategoryAll = "All"

// Language is a supported display language.
type Language string

const (
	English Language = "en"
	Kyrgyz  Language = "ky"
	Russian Language = "ru"
)

// ReferenceLanguage is the canonical language of catalog data.
// Category filters and the estimation catalog summary are matched against it.
const ReferenceLanguage = English

// DefaultLanguage is used when a caller does not pick one.
const DefaultLanguage = Russian

// Languages lists every supported language in display order.
var Languages = []Language{English, Kyrgyz, Russian}

// ParseLanguage accepts a language code. "kg" is accepted as a legacy alias for Kyrgyz.
func ParseLanguage(code string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "en":
		return English, nil
	case "ky", "kg":
		return Kyrgyz, nil
	case "ru":
		return Russian, nil
	}
	return "", fmt.Errorf("unsupported language %q", code)
}

// DisplayName is the English name of the language, as used in prompts.
func (l Language) DisplayName() string {
	switch l {
	case English:
		return "English"
	case Kyrgyz:
		return "Kyrgyz"
	case Russian:
		return "Russian"
	}
	return "English"
}

// LocalizedText holds one string per supported language.
type LocalizedText map[Language]string

// In returns the text for lang, falling back to the reference language.
func (t LocalizedText) In(lang Language) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	return t[ReferenceLanguage]
}

// Product is a catalog item. Products are immutable once loaded.
type Product struct {
	ID          string
	Name        LocalizedText
	Category    LocalizedText
	Unit        LocalizedText
	Description LocalizedText
	Price       int64 // KGS per unit
	Stock       int   // informational only
	Image       string
}

// CartLine is one cart entry keyed by product ID.
// Display fields are captured in the language active when the line was created.
type CartLine struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Unit      string `json:"unit"`
	Image     string `json:"image"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal is price times quantity.
func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// SuggestedItem is one (product ID, quantity) pair proposed by an estimation.
type SuggestedItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// EstimationResult is a one-shot material suggestion for a described project.
type EstimationResult struct {
	Text           string          `json:"text"`
	SuggestedItems []SuggestedItem `json:"suggestedItems"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CitationKind tells where a grounding citation came from.
type CitationKind string

const (
	CitationWeb  CitationKind = "web"
	CitationMaps CitationKind = "maps"
)

// Citation is a reference attached to an assistant reply.
type Citation struct {
	Kind  CitationKind `json:"kind"`
	Title string       `json:"title,omitempty"`
	URI   string       `json:"uri,omitempty"`
}

// DisplayTitle returns the title, or a generic label when the service sent none.
func (c Citation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Kind == CitationMaps {
		return "Location info"
	}
	return "Source"
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

// ChatReply is what the consultant answers to one user message.
type ChatReply struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StoreLocation is a physical showroom or warehouse.
type StoreLocation struct {
	Name      LocalizedText
	Address   LocalizedText
	Coords    Coordinates
	TwoGISURL string
}

// FormatPrice renders an amount the way the storefront shows it.
func FormatPrice(amount int64) string {
	return fmt.Sprintf("%d %s", amount, Currency)
}
