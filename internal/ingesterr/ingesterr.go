// Package ingesterr defines the closed set of error kinds the ingestion
// pipeline classifies failures into (spec.md §7), so retry/backoff policy
// dispatches on a typed Kind rather than string matching (Design Note:
// "Exceptions for control flow").
package ingesterr

import "errors"

// Kind is a closed enum of operational error classifications.
type Kind int

const (
	Unknown Kind = iota
	Validation
	UnsupportedType
	Oversize
	NetworkTransient
	ProviderRateLimit
	ProviderSchema
	Timeout
	VectorStoreUnavailable
	RelationalStoreUnavailable
	Cancelled
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case UnsupportedType:
		return "unsupported_type"
	case Oversize:
		return "oversize"
	case NetworkTransient:
		return "network_transient"
	case ProviderRateLimit:
		return "provider_rate_limit"
	case ProviderSchema:
		return "provider_schema"
	case Timeout:
		return "timeout"
	case VectorStoreUnavailable:
		return "vector_store_unavailable"
	case RelationalStoreUnavailable:
		return "relational_store_unavailable"
	case Cancelled:
		return "cancelled"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Retryable reports whether the job queue (C8) should retry a job that
// failed with this kind of error, per spec.md §4.8/§7.
func (k Kind) Retryable() bool {
	switch k {
	case NetworkTransient, ProviderRateLimit, Timeout, VectorStoreUnavailable, RelationalStoreUnavailable:
		return true
	default:
		return false
	}
}

// Error wraps a cause with a Kind and the operation it occurred in.
type Error struct {
	Op    string
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause as an *Error with the given op and kind. cause may be nil.
func New(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to Internal when err does
// not wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return Unknown
	}
	return Internal
}

// Retryable reports whether err's kind should be retried by C8.
func Retryable(err error) bool {
	return KindOf(err).Retryable()
}
