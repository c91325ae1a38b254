package concepts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies engine failures.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeAmbiguous          ErrorCode = "ambiguous"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the typed failure returned by every engine operation. It carries
// the coordinates or ids that caused it so callers can report them verbatim.
type Error struct {
	Code        ErrorCode
	Op          string
	Message     string
	Coordinates []Coordinates
	IDs         []string
	Cause       error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		fmt.Fprintf(&b, "%s: %s", op, msg)
	case op != "":
		b.WriteString(op)
	default:
		b.WriteString(msg)
	}
	if len(e.Coordinates) > 0 {
		parts := make([]string, 0, len(e.Coordinates))
		for _, c := range e.Coordinates {
			parts = append(parts, c.String())
		}
		fmt.Fprintf(&b, " coordinates=%s", strings.Join(parts, ","))
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " ids=%s", strings.Join(e.IDs, ","))
	}
	fmt.Fprintf(&b, " (%s)", e.Code)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an engine error with explicit code and operation.
func NewError(code ErrorCode, op, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with a code unless it already is an *Error.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			e.Op = strings.TrimSpace(op)
		}
		return err
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code when err is an engine error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

func ValidationError(msg string, coords ...Coordinates) *Error {
	return &Error{Code: CodeValidation, Message: msg, Coordinates: coords}
}

func AmbiguousError(msg string, coords ...Coordinates) *Error {
	return &Error{Code: CodeAmbiguous, Message: msg, Coordinates: coords}
}

func InvariantError(msg string, coords ...Coordinates) *Error {
	return &Error{Code: CodeInvariantViolation, Message: msg, Coordinates: coords}
}

func NotFoundError(msg string, ids ...string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, IDs: ids}
}

// MissingRequiredProperty reports a concept without a property the engine needs.
func MissingRequiredProperty(property string, coords Coordinates) *Error {
	return &Error{
		Code:        CodeValidation,
		Message:     fmt.Sprintf("missing required property %q", property),
		Coordinates: []Coordinates{coords},
	}
}

// WithIDs attaches node or external ids to e and returns it.
func (e *Error) WithIDs(ids ...string) *Error {
	e.IDs = append(e.IDs, ids...)
	return e
}
