package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
)

const (
	// FallbackReply is shown whenever the consultant cannot be reached.
	FallbackReply = "The consultant is currently busy. Please try again later."

	// EmptyReply is shown when the service answered with no text.
	EmptyReply = "I'm sorry, I couldn't process that request."
)

// StoreLocationBias is the coordinate retrieval is biased towards (central Bishkek).
var StoreLocationBias = entities.Coordinates{Lat: 42.8746, Lng: 74.5698}

// ChatRequest is one user turn with the caller-owned history.
type ChatRequest struct {
	Message  string
	History  []entities.ChatMessage
	Language entities.Language
}

// ChatOutcome is the tagged result of one chat call. Reply is always displayable.
type ChatOutcome struct {
	Reply   entities.ChatReply
	Failure FailureKind
	Err     error
}

// ChatUseCase handles consultant conversations.
// Single Responsibility: it holds no conversation state; history is passed in on every call.
type ChatUseCase struct {
	gen      ports.GenerativeService
	observer ports.CallObserver
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
func NewChatUseCase(gen ports.GenerativeService, observer ports.CallObserver) *ChatUseCase {
	return &ChatUseCase{
		gen:      gen,
		observer: observerOrNop(observer),
	}
}

// Reply sends the message and returns the consultant's answer, or the fallback reply.
func (uc *ChatUseCase) Reply(ctx context.Context, req ChatRequest) entities.ChatReply {
	return uc.ReplyOutcome(ctx, req).Reply
}

// ReplyOutcome is Reply with the failure kind kept.
func (uc *ChatUseCase) ReplyOutcome(ctx context.Context, req ChatRequest) ChatOutcome {
	if strings.TrimSpace(req.Message) == "" {
		return ChatOutcome{
			Reply:   fallbackReply(),
			Failure: FailureInvalidInput,
			Err:     fmt.Errorf("message: %w", ErrEmptyInput),
		}
	}

	start := time.Now()
	resp, err := uc.gen.Generate(ctx, uc.buildRequest(req))
	kind := ClassifyFailure(err)
	uc.observer.ObserveCall("chat", kind.Label(), time.Since(start))
	if err != nil {
		return ChatOutcome{
			Reply:   fallbackReply(),
			Failure: kind,
			Err:     fmt.Errorf("generating reply: %w", err),
		}
	}

	reply := entities.ChatReply{
		Text:      resp.Text,
		Citations: make([]entities.Citation, 0, len(resp.Citations)),
	}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = EmptyReply
	}
	for _, c := range resp.Citations {
		if c.URI == "" && c.Title == "" {
			continue
		}
		reply.Citations = append(reply.Citations, c)
	}
	return ChatOutcome{Reply: reply}
}

func (uc *ChatUseCase) buildRequest(req ChatRequest) *ports.GenerateRequest {
	lang := req.Language
	if lang == "" {
		lang = entities.DefaultLanguage
	}

	contents := make([]ports.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		contents = append(contents, ports.Content{Role: m.Role, Text: m.Text})
	}
	contents = append(contents, ports.Content{Role: entities.RoleUser, Text: strings.TrimSpace(req.Message)})

	bias := StoreLocationBias
	return &ports.GenerateRequest{
		Purpose:           ports.PurposeChat,
		SystemInstruction: consultantInstruction(lang),
		Contents:          contents,
		Tools:             []ports.Tool{ports.ToolWebSearch, ports.ToolMaps},
		LocationBias:      &bias,
	}
}

func consultantInstruction(lang entities.Language) string {
	var sb strings.Builder
	sb.WriteString("You are TamSal AI, a senior construction consultant for a specialized interior material store in Bishkek, Kyrgyzstan.\n")
	sb.WriteString("Your goal is to help customers select the right flooring (laminate, linoleum) and wall panels (PVC).\n")
	fmt.Fprintf(&sb, "Current language preference: %s. Please respond primarily in this language.\n", lang.DisplayName())
	fmt.Fprintf(&sb, "Prices are in Kyrgyz Som (%s).\n", entities.Currency)
	sb.WriteString("Focus on technical advice regarding underlayment, adhesive choice, and finishing trims (skirting).\n")
	sb.WriteString("Be professional, concise, and helpful.")
	return sb.String()
}

func fallbackReply() entities.ChatReply {
	return entities.ChatReply{Text: FallbackReply, Citations: []entities.Citation{}}
}
