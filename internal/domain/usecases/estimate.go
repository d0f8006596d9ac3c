package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
)

const estimateSystemInstruction = "You are a construction estimation expert. " +
	"Return a JSON object with 'text' (human readable explanation) and 'suggestedItems' (array of {id: string, quantity: number}). " +
	"Use integers for quantities. Round up for safety."

// estimationSchema is the two-field reply shape the service must follow.
var estimationSchema = &ports.Schema{
	Type: ports.SchemaObject,
	Properties: map[string]*ports.Schema{
		"text": {Type: ports.SchemaString},
		"suggestedItems": {
			Type: ports.SchemaArray,
			Items: &ports.Schema{
				Type: ports.SchemaObject,
				Properties: map[string]*ports.Schema{
					"id":       {Type: ports.SchemaString},
					"quantity": {Type: ports.SchemaInteger},
				},
				Required: []string{"id", "quantity"},
			},
		},
	},
	Required: []string{"text", "suggestedItems"},
}

// EstimationRequest describes the project to estimate.
type EstimationRequest struct {
	ProjectType string
	Dimensions  string
	Language    entities.Language
}

// Validate reports ErrEmptyInput when either free-text field is blank.
func (r EstimationRequest) Validate() error {
	if strings.TrimSpace(r.ProjectType) == "" {
		return fmt.Errorf("project type: %w", ErrEmptyInput)
	}
	if strings.TrimSpace(r.Dimensions) == "" {
		return fmt.Errorf("dimensions: %w", ErrEmptyInput)
	}
	return nil
}

// EstimationOutcome is the tagged result of one estimation call.
type EstimationOutcome struct {
	Result  *entities.EstimationResult
	Failure FailureKind
	Err     error
}

// EstimationUseCase asks the generative service for a material estimate.
type EstimationUseCase struct {
	gen      ports.GenerativeService
	catalog  *CatalogStore
	observer ports.CallObserver
}

// NewEstimationUseCase creates an EstimationUseCase with injected dependencies.
func NewEstimationUseCase(gen ports.GenerativeService, catalog *CatalogStore, observer ports.CallObserver) *EstimationUseCase {
	return &EstimationUseCase{
		gen:      gen,
		catalog:  catalog,
		observer: observerOrNop(observer),
	}
}

// Estimate returns the suggestion, or nil when no estimate is available for any reason.
func (uc *EstimationUseCase) Estimate(ctx context.Context, req EstimationRequest) *entities.EstimationResult {
	return uc.EstimateOutcome(ctx, req).Result
}

// EstimateOutcome runs one estimation and keeps the failure kind.
func (uc *EstimationUseCase) EstimateOutcome(ctx context.Context, req EstimationRequest) EstimationOutcome {
	if err := req.Validate(); err != nil {
		return EstimationOutcome{Failure: FailureInvalidInput, Err: err}
	}

	start := time.Now()
	result, err := uc.estimate(ctx, req)
	kind := ClassifyFailure(err)
	uc.observer.ObserveCall("estimate", kind.Label(), time.Since(start))
	if err != nil {
		return EstimationOutcome{Failure: kind, Err: err}
	}
	return EstimationOutcome{Result: result}
}

func (uc *EstimationUseCase) estimate(ctx context.Context, req EstimationRequest) (*entities.EstimationResult, error) {
	prompt, err := uc.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := uc.gen.Generate(ctx, &ports.GenerateRequest{
		Purpose:           ports.PurposeEstimate,
		SystemInstruction: estimateSystemInstruction,
		Contents:          []ports.Content{{Role: entities.RoleUser, Text: prompt}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    estimationSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generating estimate: %w", err)
	}

	return ParseEstimation(resp.Text)
}

// buildPrompt creates the estimation prompt with the catalog summary.
func (uc *EstimationUseCase) buildPrompt(req EstimationRequest) (string, error) {
	lang := req.Language
	if lang == "" {
		lang = entities.DefaultLanguage
	}
	summary, err := json.Marshal(uc.catalog.Current().Summary())
	if err != nil {
		return "", fmt.Errorf("marshaling catalog summary: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Calculate estimated materials needed for a %s with these dimensions: %s.\n",
		strings.TrimSpace(req.ProjectType), strings.TrimSpace(req.Dimensions))
	fmt.Fprintf(&sb, "Use the following product catalog to suggest items: %s.\n", summary)
	fmt.Fprintf(&sb, "Respond in %s.", lang.DisplayName())
	return sb.String(), nil
}

// wireEstimation mirrors the JSON reply. Pointers detect missing required fields.
type wireEstimation struct {
	Text           *string `json:"text"`
	SuggestedItems *[]struct {
		ID       *string  `json:"id"`
		Quantity *float64 `json:"quantity"`
	} `json:"suggestedItems"`
}

// ParseEstimation decodes a reply into an EstimationResult.
// Fractional quantities are rounded up; items with an empty ID or non-positive quantity are dropped.
func ParseEstimation(raw string) (*entities.EstimationResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty reply: %w", ports.ErrMalformedResponse)
	}

	var wire wireEstimation
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&wire); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("field %s: %w", typeErr.Field, ErrSchemaMismatch)
		}
		return nil, fmt.Errorf("decoding reply: %v: %w", err, ports.ErrMalformedResponse)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after reply: %w", ports.ErrMalformedResponse)
	}
	if wire.Text == nil || wire.SuggestedItems == nil {
		return nil, fmt.Errorf("missing text or suggestedItems: %w", ErrSchemaMismatch)
	}

	result := &entities.EstimationResult{
		Text:           *wire.Text,
		SuggestedItems: make([]entities.SuggestedItem, 0, len(*wire.SuggestedItems)),
	}
	for _, item := range *wire.SuggestedItems {
		if item.ID == nil || item.Quantity == nil {
			return nil, fmt.Errorf("suggested item without id or quantity: %w", ErrSchemaMismatch)
		}
		qty := math.Ceil(*item.Quantity)
		if *item.ID == "" || qty <= 0 || qty > math.MaxInt32 {
			continue
		}
		result.SuggestedItems = append(result.SuggestedItems, entities.SuggestedItem{
			ID:       *item.ID,
			Quantity: int(qty),
		})
	}
	return result, nil
}

// ShoppingListLine is one resolved suggestion, ready to render.
type ShoppingListLine struct {
	Product   entities.Product
	Quantity  int
	LineTotal int64
}

// ShoppingList is the rendered estimation: known products only.
type ShoppingList struct {
	Lines []ShoppingListLine
	Total int64
}

// ResolveSuggestions maps suggestions back into catalog products, skipping unknown IDs.
func ResolveSuggestions(catalog *Catalog, result *entities.EstimationResult) ShoppingList {
	list := ShoppingList{Lines: []ShoppingListLine{}}
	if result == nil {
		return list
	}
	for _, item := range result.SuggestedItems {
		product, ok := catalog.Find(item.ID)
		if !ok || item.Quantity <= 0 {
			continue
		}
		line := ShoppingListLine{
			Product:   product,
			Quantity:  item.Quantity,
			LineTotal: product.Price * int64(item.Quantity),
		}
		list.Lines = append(list.Lines, line)
		list.Total += line.LineTotal
	}
	return list
}
