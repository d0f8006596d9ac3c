package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/tamsal/storefront/internal/domain/ports"
)

// FailureKind classifies why a remote call produced no usable answer.
// Callers still show one generic message; the kind exists for logs, metrics and tests.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureInvalidInput   FailureKind = "invalid_input"
	FailureCredential     FailureKind = "credential"
	FailureTransport      FailureKind = "transport"
	FailureUpstreamStatus FailureKind = "upstream_status"
	FailureMalformed      FailureKind = "malformed"
	FailureSchema         FailureKind = "schema"
)

// Label is the metrics label for the kind.
func (k FailureKind) Label() string {
	if k == FailureNone {
		return "success"
	}
	return string(k)
}

// ErrSchemaMismatch means the reply was valid JSON but not the requested shape.
var ErrSchemaMismatch = errors.New("reply does not match the requested schema")

// ErrEmptyInput means a required free-text field was blank.
var ErrEmptyInput = errors.New("required input is empty")

// ClassifyFailure maps an error from a generative service call to a FailureKind.
func ClassifyFailure(err error) FailureKind {
	var statusErr *ports.StatusError
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrEmptyInput):
		return FailureInvalidInput
	case errors.Is(err, ports.ErrMissingCredential):
		return FailureCredential
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == 401 || statusErr.StatusCode == 403 {
			return FailureCredential
		}
		return FailureUpstreamStatus
	case errors.Is(err, ErrSchemaMismatch):
		return FailureSchema
	case errors.Is(err, ports.ErrMalformedResponse):
		return FailureMalformed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureTransport
	}
	return FailureTransport
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, string, time.Duration) {}

func observerOrNop(o ports.CallObserver) ports.CallObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}
