package api

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// FailureKind classifies why a request did not produce data.
type FailureKind int

const (
	NoFailure FailureKind = iota
	// NetworkFailure means no response was received.
	NetworkFailure
	Unauthorized
	Forbidden
	NotFound
	// Conflict may carry a message supplied by the server.
	Conflict
	ServerError
	Unclassified
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "none"
	case NetworkFailure:
		return "network"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case ServerError:
		return "server_error"
	default:
		return "unclassified"
	}
}

// Message returns the user-facing message shown for k when no better one is
// available.
func (k FailureKind) Message() string {
	switch k {
	case NetworkFailure:
		return "connection failure"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case Conflict:
		return "data consistency conflict"
	case ServerError:
		return "internal server error"
	default:
		return "unexpected error"
	}
}

// Result is the outcome of a service call: either data or a user-facing
// error message, never both and never neither. The zero value is a failure.
type Result[T any] struct {
	data    T
	kind    FailureKind
	message string
	ok      bool
}

// Ok wraps data in a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{data: data, ok: true}
}

// Fail builds a failed result. An empty message is replaced by the default
// message of kind.
func Fail[T any](kind FailureKind, message string) Result[T] {
	if kind == NoFailure {
		kind = Unclassified
	}
	if message == "" {
		message = kind.Message()
	}
	return Result[T]{kind: kind, message: message}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.ok }

// Data returns the payload. It is the zero value on failure.
func (r Result[T]) Data() T { return r.data }

// ErrorMessage returns the user-facing message, or "" on success.
func (r Result[T]) ErrorMessage() string {
	if r.ok {
		return ""
	}
	if r.message == "" {
		return Unclassified.Message()
	}
	return r.message
}

// Kind returns NoFailure on success.
func (r Result[T]) Kind() FailureKind {
	if r.ok {
		return NoFailure
	}
	if r.kind == NoFailure {
		return Unclassified
	}
	return r.kind
}

// Recast carries a failure over to a result of another payload type.
func Recast[T, U any](r Result[T]) Result[U] {
	return Fail[U](r.Kind(), r.ErrorMessage())
}

// MarshalJSON encodes the result as {"data": ..., "errorMessage": ...} with
// exactly one of the two fields non-null.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	var env struct {
		Data         json.RawMessage `json:"data"`
		ErrorMessage *string         `json:"errorMessage"`
	}
	if r.ok {
		data, err := json.Marshal(r.data)
		if err != nil {
			return nil, err
		}
		// A nil slice or pointer payload still counts as data.
		if bytes.Equal(data, []byte("null")) {
			data = []byte("{}")
			if reflect.ValueOf(r.data).Kind() == reflect.Slice {
				data = []byte("[]")
			}
		}
		env.Data = data
	} else {
		env.Data = json.RawMessage("null")
		msg := r.ErrorMessage()
		env.ErrorMessage = &msg
	}
	return json.Marshal(env)
}
