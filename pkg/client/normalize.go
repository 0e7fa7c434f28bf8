package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/luthenlog/luthen/pkg/api"
)

// HandleResponse turns a successful response body into a Result. An empty
// body yields the zero value of T. Opaque payloads (json.RawMessage) accept
// any body; one that is not JSON is kept as a JSON string.
func HandleResponse[T any](body []byte) api.Result[T] {
	var data T
	if len(bytes.TrimSpace(body)) == 0 {
		return api.Ok(data)
	}
	if raw, ok := any(&data).(*json.RawMessage); ok {
		if json.Valid(body) {
			*raw = append(json.RawMessage(nil), body...)
			return api.Ok(data)
		}
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return api.Fail[T](api.Unclassified, "")
		}
		*raw = quoted
		return api.Ok(data)
	}
	if err := json.Unmarshal(body, &data); err != nil {
		slog.Error("decoding response body", "component", "client", "error", err)
		return api.Fail[T](api.Unclassified, "")
	}
	return api.Ok(data)
}

// HandleError turns a failed request into a Result carrying a user-facing
// message. The raw error is logged.
func HandleError[T any](err error) api.Result[T] {
	kind, message := Classify(err)

	attrs := []any{"component", "client", "kind", kind.String(), "error", err}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		attrs = append(attrs, "request_id", statusErr.RequestID, "status", statusErr.Code)
	}
	slog.Error("request failed", attrs...)

	return api.Fail[T](kind, message)
}

// Classify maps err to a failure kind and the message shown to the user.
// An empty message means the kind's default.
func Classify(err error) (api.FailureKind, string) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusUnauthorized:
			return api.Unauthorized, ""
		case http.StatusForbidden:
			return api.Forbidden, ""
		case http.StatusNotFound:
			return api.NotFound, ""
		case http.StatusConflict:
			return api.Conflict, gjson.GetBytes(statusErr.Body, "message").String()
		case http.StatusInternalServerError:
			return api.ServerError, ""
		default:
			return api.Unclassified, ""
		}
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return api.NetworkFailure, ""
	}
	return api.Unclassified, ""
}
