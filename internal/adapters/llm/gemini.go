// Package llm provides the hosted generative model adapter.
// Clean Architecture: Adapter implementing ports.GenerativeService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
)

const (
	DefaultBaseURL       = "https://generativelanguage.googleapis.com"
	DefaultChatModel     = "gemini-2.5-flash"
	DefaultEstimateModel = "gemini-3-flash-preview"

	maxErrorBody    = 2048
	maxResponseBody = 8 << 20
)

var tracer = otel.Tracer("github.com/tamsal/storefront/internal/adapters/llm")

// GeminiConfig configures the adapter. Zero values fall back to defaults.
type GeminiConfig struct {
	BaseURL       string
	APIKey        string
	ChatModel     string
	EstimateModel string
	Timeout       time.Duration
}

// GeminiAdapter implements ports.GenerativeService using the generateContent REST API.
type GeminiAdapter struct {
	baseURL       string
	apiKey        string
	chatModel     string
	estimateModel string
	client        *http.Client
	log           logrus.FieldLogger
}

// NewGeminiAdapter creates a new Gemini adapter.
func NewGeminiAdapter(cfg GeminiConfig, log logrus.FieldLogger) *GeminiAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EstimateModel == "" {
		cfg.EstimateModel = DefaultEstimateModel
	}
	if log == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		log = discard
	}
	return &GeminiAdapter{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		chatModel:     cfg.ChatModel,
		estimateModel: cfg.EstimateModel,
		client:        &http.Client{Timeout: cfg.Timeout},
		log:           log.WithField("component", "gemini"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
	GoogleMaps   *struct{} `json:"googleMaps,omitempty"`
}

type geminiLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geminiToolConfig struct {
	RetrievalConfig struct {
		LatLng geminiLatLng `json:"latLng"`
	} `json:"retrievalConfig"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *ports.Schema `json:"responseSchema,omitempty"`
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	ToolConfig        *geminiToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// geminiResponse is the subset of the generateContent response we read.
type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web  *geminiSource `json:"web"`
				Maps *geminiSource `json:"maps"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// Generate sends one request and returns the first candidate's text and citations.
func (a *GeminiAdapter) Generate(ctx context.Context, req *ports.GenerateRequest) (*ports.GenerateResponse, error) {
	model := a.modelFor(req.Purpose)
	ctx, span := tracer.Start(ctx, "gemini.generateContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("genai.model", model),
		attribute.String("genai.purpose", req.Purpose.String()),
		attribute.Int("genai.contents", len(req.Contents)),
	)

	resp, err := a.generate(ctx, model, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("genai.citations", len(resp.Citations)))
	return resp, nil
}

func (a *GeminiAdapter) generate(ctx context.Context, model string, req *ports.GenerateRequest) (*ports.GenerateResponse, error) {
	if a.apiKey == "" {
		return nil, ports.ErrMissingCredential
	}

	jsonData, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := a.baseURL + "/v1beta/models/" + model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", a.apiKey)

	a.log.WithFields(logrus.Fields{"model": model, "purpose": req.Purpose.String()}).Debug("calling generateContent")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling Gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &ports.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if len(body) > maxResponseBody {
		return nil, fmt.Errorf("response exceeds %d bytes: %w", maxResponseBody, ports.ErrMalformedResponse)
	}

	var genResp geminiResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("decoding response: %v: %w", err, ports.ErrMalformedResponse)
	}

	return parseResponse(&genResp), nil
}

func (a *GeminiAdapter) modelFor(p ports.Purpose) string {
	if p == ports.PurposeEstimate {
		return a.estimateModel
	}
	return a.chatModel
}

// buildRequest maps a port request onto the wire format.
func buildRequest(req *ports.GenerateRequest) *geminiRequest {
	out := &geminiRequest{Contents: make([]geminiContent, 0, len(req.Contents))}
	for _, c := range req.Contents {
		role := "user"
		if c.Role == entities.RoleAssistant {
			role = "model"
		}
		out.Contents = append(out.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: c.Text}}})
	}

	if req.SystemInstruction != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}

	for _, t := range req.Tools {
		switch t {
		case ports.ToolWebSearch:
			out.Tools = append(out.Tools, geminiTool{GoogleSearch: &struct{}{}})
		case ports.ToolMaps:
			out.Tools = append(out.Tools, geminiTool{GoogleMaps: &struct{}{}})
		}
	}

	if req.LocationBias != nil {
		out.ToolConfig = &geminiToolConfig{}
		out.ToolConfig.RetrievalConfig.LatLng = geminiLatLng{
			Latitude:  req.LocationBias.Lat,
			Longitude: req.LocationBias.Lng,
		}
	}

	if req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		out.GenerationConfig = &geminiGenerationConfig{
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   req.ResponseSchema,
		}
	}
	return out
}

// parseResponse joins the first candidate's text parts and collects grounding citations.
func parseResponse(resp *geminiResponse) *ports.GenerateResponse {
	out := &ports.GenerateResponse{}
	if len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	out.Text = sb.String()

	if cand.GroundingMetadata == nil {
		return out
	}
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		switch {
		case chunk.Web != nil:
			out.Citations = append(out.Citations, entities.Citation{Kind: entities.CitationWeb, Title: chunk.Web.Title, URI: chunk.Web.URI})
		case chunk.Maps != nil:
			out.Citations = append(out.Citations, entities.Citation{Kind: entities.CitationMaps, Title: chunk.Maps.Title, URI: chunk.Maps.URI})
		}
	}
	return out
}
