package storage

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

var (
	// ErrNotFound is returned when the draft does not exist for the owner.
	ErrNotFound = errors.New("draft not found")
	// ErrConcurrencyConflict is returned when the stored draft changed since it was loaded.
	ErrConcurrencyConflict = errors.New("draft was modified concurrently")
	// ErrTooLarge is returned when a draft or submission exceeds what the
	// backing table or queue can hold.
	ErrTooLarge = errors.New("content exceeds storage limits")
)

var tooLargeCodes = map[string]bool{
	"EntityTooLarge":        true,
	"PropertyValueTooLarge": true,
	"RequestBodyTooLarge":   true,
	"MessageTooLarge":       true,
}

// mapAzureError translates table status codes into storage errors.
func mapAzureError(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	if tooLargeCodes[respErr.ErrorCode] {
		return ErrTooLarge
	}
	switch respErr.StatusCode {
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusPreconditionFailed, http.StatusConflict:
		return ErrConcurrencyConflict
	default:
		return err
	}
}
