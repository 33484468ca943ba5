package catalog

import (
	"errors"
	"net/http"
)

// Kind classifies a catalog store failure. The value is also the wire
// representation carried in ErrorBody.
type Kind string

const (
	KindConnectionUnavailable Kind = "CONNECTION_UNAVAILABLE"
	KindQueryExecutionFailed  Kind = "QUERY_EXECUTION_FAILED"
	KindMalformedResponse     Kind = "MALFORMED_RESPONSE"
)

func (k Kind) Valid() bool {
	switch k {
	case KindConnectionUnavailable, KindQueryExecutionFailed, KindMalformedResponse:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindConnectionUnavailable:
		return "connection unavailable"
	case KindQueryExecutionFailed:
		return "query execution failed"
	case KindMalformedResponse:
		return "malformed response"
	}
	return "unknown store error"
}

// HTTPStatus is the status the catalog API answers with for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindConnectionUnavailable:
		return http.StatusServiceUnavailable
	case KindMalformedResponse:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Error is a typed catalog store failure. errors.Is matches it against the
// Err* sentinels by kind, and the wrapped cause stays reachable.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrConnectionUnavailable = &Error{Kind: KindConnectionUnavailable}
	ErrQueryExecutionFailed  = &Error{Kind: KindQueryExecutionFailed}
	ErrMalformedResponse     = &Error{Kind: KindMalformedResponse}
)

func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

type ErrorBody struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind,omitempty"`
}
