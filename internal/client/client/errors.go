package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNotLoggedIn = errors.New("not logged in")
	ErrRateLimited = errors.New("too many requests")
	ErrUnexpected  = errors.New("unexpected response")
)

// APIError is a failed call as reported by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Unwrap maps the status code to the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return common.ErrorValidation
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrorNotConfirmed
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusConflict:
		return common.ErrorConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusInternalServerError:
		return common.ErrorInternal
	default:
		return ErrUnexpected
	}
}
