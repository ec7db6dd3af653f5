package contract

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable      = errors.New("upstream model unavailable")
	ErrSchemaViolation  = errors.New("model response violates schema")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrUnknown          = errors.New("model invoke failed")
	ErrContractMissing  = errors.New("no contract registered for use case")
	ErrPromptMissing    = errors.New("required prompt is missing")
	ErrValidation       = errors.New("validation failed")
)

// FailureKind classifies why a pipeline call did not produce an accepted output.
type FailureKind string

const (
	KindUnavailable      FailureKind = "unavailable"
	KindSchemaViolation  FailureKind = "schema_violation"
	KindRetriesExhausted FailureKind = "retries_exhausted"
	KindUnknown          FailureKind = "unknown"
)

func (k FailureKind) sentinel() error {
	switch k {
	case KindUnavailable:
		return ErrUnavailable
	case KindSchemaViolation:
		return ErrSchemaViolation
	case KindRetriesExhausted:
		return ErrRetriesExhausted
	default:
		return ErrUnknown
	}
}

// Message is the caller-safe description of k.
func (k FailureKind) Message() string {
	return k.sentinel().Error()
}

// Failure is the tagged error every backend, the invocation client and the retry
// controller return. Callers branch on Kind, never on the message text.
type Failure struct {
	Kind     FailureKind
	UseCase  UseCase
	Attempts int
	Status   int
	Err      error
}

func (f *Failure) Error() string {
	msg := f.Kind.sentinel().Error()
	if f.UseCase != "" {
		msg = fmt.Sprintf("%s: use_case=%s", msg, f.UseCase)
	}
	if f.Attempts > 0 {
		msg = fmt.Sprintf("%s attempts=%d", msg, f.Attempts)
	}
	if f.Status > 0 {
		msg = fmt.Sprintf("%s status=%d", msg, f.Status)
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is lets errors.Is(err, ErrUnavailable) and friends match on Kind.
func (f *Failure) Is(target error) bool {
	return target == f.Kind.sentinel()
}

// Retryable reports whether a fresh attempt could succeed.
func (f *Failure) Retryable() bool {
	return f != nil && f.Kind == KindUnavailable
}

func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func Unavailable(status int, err error) *Failure {
	return &Failure{Kind: KindUnavailable, Status: status, Err: err}
}

func SchemaViolation(format string, args ...any) *Failure {
	return &Failure{Kind: KindSchemaViolation, Err: fmt.Errorf(format, args...)}
}

// AsFailure returns the Failure carried by err. Errors that were never tagged are
// reported as KindUnknown so that nothing is retried by accident.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindUnknown, Err: err}
}

// KindOf is shorthand for AsFailure(err).Kind.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	return AsFailure(err).Kind
}
