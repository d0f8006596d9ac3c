// Package ports defines interfaces for external dependencies.
// Clean Architecture: usecases depend on these abstractions, adapters implement them.
package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamsal/storefront/internal/domain/entities"
)

// Sentinel errors shared by generative service adapters.
var (
	// ErrMissingCredential means no API key is configured; no request was sent.
	ErrMissingCredential = errors.New("generative service credential not configured")

	// ErrMalformedResponse means the service answered 2xx with a body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed generative service response")
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generative service returned status %d", e.StatusCode)
}

// Purpose selects the model configured for a kind of request.
type Purpose int

const (
	PurposeChat Purpose = iota
	PurposeEstimate
)

func (p Purpose) String() string {
	if p == PurposeEstimate {
		return "estimate"
	}
	return "chat"
}

// Tool is a retrieval capability the service may use while answering.
type Tool string

const (
	ToolWebSearch Tool = "web_search"
	ToolMaps      Tool = "maps"
)

// Content is one role-tagged turn sent to the service.
type Content struct {
	Role entities.Role
	Text string
}

// SchemaType names a JSON schema node type.
type SchemaType string

const (
	SchemaObject  SchemaType = "OBJECT"
	SchemaArray   SchemaType = "ARRAY"
	SchemaString  SchemaType = "STRING"
	SchemaInteger SchemaType = "INTEGER"
	SchemaNumber  SchemaType = "NUMBER"
)

// Schema constrains a structured JSON reply.
type Schema struct {
	Type       SchemaType         `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// GenerateRequest is a single call to the generative service.
type GenerateRequest struct {
	Purpose           Purpose
	SystemInstruction string
	Contents          []Content
	Tools             []Tool
	LocationBias      *entities.Coordinates

	// ResponseMIMEType and ResponseSchema request structured output.
	ResponseMIMEType string
	ResponseSchema   *Schema
}

// GenerateResponse is the service's answer.
type GenerateResponse struct {
	Text      string
	Citations []entities.Citation
}

// GenerativeService sends prompts to a hosted language model.
type GenerativeService interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// CatalogData is everything a catalog source provides.
type CatalogData struct {
	Products   []entities.Product
	Categories []string // reference-language names, without the "All" sentinel
	Locations  []entities.StoreLocation
}

// CatalogLoader reads catalog data from a file. An empty path loads the built-in catalog.
type CatalogLoader interface {
	Load(ctx context.Context, path string) (*CatalogData, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// CallObserver records the outcome of remote calls.
type CallObserver interface {
	ObserveCall(operation, outcome string, elapsed time.Duration)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
