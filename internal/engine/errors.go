package engine

import "fmt"

// ErrKind classifies a failed turn at the orchestration boundary. The HTTP
// layer maps kinds to status codes; the engine itself never picks codes.
type ErrKind string

const (
	// KindValidation: missing or malformed input. Surfaced immediately.
	KindValidation ErrKind = "validation"
	// KindConflict: the external service rejected work because another run
	// is active on the same thread, and bounded retries did not clear it.
	KindConflict ErrKind = "conflict"
	// KindTransient: a network or service failure outside the retried
	// sections, e.g. thread lookup.
	KindTransient ErrKind = "transient"
	// KindFatal: bounded retries exhausted or persistence failed.
	KindFatal ErrKind = "fatal"
)

// TurnError is the tagged failure of one orchestration turn.
type TurnError struct {
	Kind   ErrKind
	Detail string
	Err    error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func validationError(detail string) *TurnError {
	return &TurnError{Kind: KindValidation, Detail: detail}
}

func transientError(detail string, err error) *TurnError {
	return &TurnError{Kind: KindTransient, Detail: detail, Err: err}
}

func conflictError(detail string, err error) *TurnError {
	return &TurnError{Kind: KindConflict, Detail: detail, Err: err}
}

func fatalError(detail string, err error) *TurnError {
	return &TurnError{Kind: KindFatal, Detail: detail, Err: err}
}
