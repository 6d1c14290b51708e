// Package contexerr defines the typed error taxonomy surfaced by the
// Contex core to its callers (orchestrator, HTTP handlers). Each kind maps
// deterministically to an HTTP status and a recovery expectation.
package contexerr

import (
	"errors"
	"fmt"
)

// Kind identifies a category of error in the taxonomy.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindFormatDetection  Kind = "format_detection"
	KindEmbedding        Kind = "embedding"
	KindDeliveryTerminal Kind = "delivery_terminal"
	KindDeliveryLag      Kind = "delivery_lag"
	KindCatchupTruncated Kind = "catchup_truncated"
)

// Error is a typed error carrying a Kind and enough context for a caller
// to decide recovery without string-matching the message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, contexerr.New(contexerr.KindNotFound, "")) style
// checks: any *Error target with the same Kind matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func FormatDetection(format string, args ...any) *Error {
	return New(KindFormatDetection, fmt.Sprintf(format, args...))
}

func Embedding(err error, format string, args ...any) *Error {
	return Wrap(KindEmbedding, fmt.Sprintf(format, args...), err)
}

func DeliveryTerminal(format string, args ...any) *Error {
	return New(KindDeliveryTerminal, fmt.Sprintf(format, args...))
}

func DeliveryLag(format string, args ...any) *Error {
	return New(KindDeliveryLag, fmt.Sprintf(format, args...))
}

func CatchupTruncated(format string, args ...any) *Error {
	return New(KindCatchupTruncated, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
