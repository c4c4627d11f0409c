package auction_api_client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sevahub/templeauction/go/clients"
)

// APIError is a backend rejection. Message is shown to the user as-is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// toAPIError turns a non-2xx response into an APIError carrying the backend's message
func toAPIError(err error) error {
	var statusErr *clients.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var body errorResponse
	if jsonErr := json.Unmarshal(statusErr.Body, &body); jsonErr == nil {
		switch {
		case body.Message != "":
			return &APIError{StatusCode: statusErr.StatusCode, Message: body.Message}
		case body.Error != "":
			return &APIError{StatusCode: statusErr.StatusCode, Message: body.Error}
		}
	}

	return &APIError{
		StatusCode: statusErr.StatusCode,
		Message:    fmt.Sprintf("request failed: %s", http.StatusText(statusErr.StatusCode)),
	}
}
