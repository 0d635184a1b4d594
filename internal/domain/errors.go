package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can map it to a response.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindGateway           Kind = "gateway"
	KindContractViolation Kind = "contract_violation"
	KindMalformedEnvelope Kind = "malformed_envelope"
	KindConflict          Kind = "conflict"
	KindGradingFailed     Kind = "grading_failed"
	KindInternal          Kind = "internal"
)

// Error is a failure with a kind. Two errors match under errors.Is when the
// kinds are equal and the target either has no message or the same one.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	// Kind sentinels; errors.Is(err, ErrNotFound) matches every not-found error.
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrGateway           = &Error{Kind: KindGateway}
	ErrContractViolation = &Error{Kind: KindContractViolation}
	ErrMalformedEnvelope = &Error{Kind: KindMalformedEnvelope}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrGradingFailed     = &Error{Kind: KindGradingFailed}

	// ErrSessionNotFound is returned when no live session has the given code.
	ErrSessionNotFound = &Error{Kind: KindNotFound, Msg: "game session not found"}
	// ErrUserNotFound is returned when a username cannot be resolved.
	ErrUserNotFound = &Error{Kind: KindNotFound, Msg: "user not found"}
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = &Error{Kind: KindNotFound, Msg: "question not found"}
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = &Error{Kind: KindNotFound, Msg: "quiz not found"}
	// ErrCodeTaken is returned by stores when a session code is already in use.
	ErrCodeTaken = &Error{Kind: KindConflict, Msg: "session code already in use"}
	// ErrSessionClosed is returned when joining a session that already started.
	ErrSessionClosed = &Error{Kind: KindValidation, Msg: "session is not accepting players"}
	// ErrSessionFull is returned when the roster has reached its limit.
	ErrSessionFull = &Error{Kind: KindValidation, Msg: "session is full"}
	// ErrAlreadyAnswered is returned when a player answers a session question twice.
	ErrAlreadyAnswered = &Error{Kind: KindConflict, Msg: "question already answered"}
	// ErrNotHost is returned when a non-host tries to drive the session.
	ErrNotHost = &Error{Kind: KindValidation, Msg: "only the host can change session status"}
)

// Validationf builds a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// ContractViolationf builds a contract violation error.
func ContractViolationf(format string, args ...any) error {
	return &Error{Kind: KindContractViolation, Msg: fmt.Sprintf(format, args...)}
}

// MalformedEnvelopef builds a malformed envelope error.
func MalformedEnvelopef(format string, args ...any) error {
	return &Error{Kind: KindMalformedEnvelope, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
