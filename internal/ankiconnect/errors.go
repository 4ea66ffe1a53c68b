package ankiconnect

import (
	"errors"
	"fmt"
)

// Kind classifies a failed AnkiConnect call.
type Kind int

const (
	// KindTransport means the endpoint could not be reached or did not speak
	// HTTP properly. Nothing else will work either.
	KindTransport Kind = iota + 1

	// KindMalformed means the response was not a {result, error} envelope or
	// the result did not have the expected shape.
	KindMalformed

	// KindApplication means AnkiConnect answered with a non-null error.
	KindApplication
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by every failed call.
type Error struct {
	Kind    Kind
	Action  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ankiconnect %s: %s error: %s: %v", e.Action, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("ankiconnect %s: %s error: %s", e.Action, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return kindOf(err) == KindTransport }

// IsMalformed reports whether err is a malformed response.
func IsMalformed(err error) bool { return kindOf(err) == KindMalformed }

// IsApplication reports whether err is an error reported by AnkiConnect itself.
func IsApplication(err error) bool { return kindOf(err) == KindApplication }
