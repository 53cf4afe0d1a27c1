package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// PermissionMessage is shown for any unauthorized response.
const PermissionMessage = "Permission denied: check the API key for this project"

// APIError is a non-success answer from the API, or a success status whose
// body could not be understood.
type APIError struct {
	Status  int
	Message string // server supplied, may be empty
	Err     error
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	return &APIError{Status: status, Message: payload.Error}
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("api error %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// UserMessage turns any error from this package into text for end users:
// unauthorized responses become PermissionMessage, otherwise the server's
// message is preferred and fallback covers transport failures and bodies
// without one.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
		return PermissionMessage
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
