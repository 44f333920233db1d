// Package ingesterr defines the error taxonomy the ingestion core
// propagates from decoders, handlers, and the store up to the HTTP
// layer and the process entrypoints.
package ingesterr

import "errors"

// Kind classifies an error for the purposes of the HTTP response code
// and the retry behavior the node is expected to apply.
type Kind string

const (
	// KindDecode marks malformed binary or JSON input. Fatal to the
	// message; the handler must not attempt partial processing.
	KindDecode Kind = "decode"
	// KindReferenceMissing marks an event that names a transaction
	// absent from its own update bundle. Fatal to the message.
	KindReferenceMissing Kind = "reference_missing"
	// KindStoreConflict marks a store-reported constraint violation,
	// typically caused by duplicate delivery. Safe to retry.
	KindStoreConflict Kind = "store_conflict"
	// KindStoreUnavailable marks transient store connectivity loss.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindConfig marks a startup-only configuration error. Callers
	// should exit the process with status 1.
	KindConfig Kind = "config"
)

// Error wraps an underlying cause with a Kind so that handlers and the
// transport layer can decide how to respond without inspecting error
// strings.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind. A nil err still produces a non-nil
// *Error carrying only the kind, so callers can use it as a sentinel.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

var (
	// ErrTransaction marks a malformed raw transaction payload.
	ErrTransaction = New(KindDecode, errors.New("malformed transaction"))
	// ErrClarityValue marks a malformed Clarity value payload.
	ErrClarityValue = New(KindDecode, errors.New("malformed clarity value"))
	// ErrUnknownMessage marks a node message whose type/variant is not
	// recognized; per the redesign guidance this is always a hard
	// error, never a silently-admitted unknown variant.
	ErrUnknownMessage = New(KindDecode, errors.New("unrecognized message variant"))
)
