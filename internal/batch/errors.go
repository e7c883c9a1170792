package batch

import (
	"errors"
	"strings"

	"github.com/ternarybob/seoforge/internal/interfaces"
)

var (
	// ErrInvalidConfiguration is returned when a run is requested with zero
	// workers or a zero selection limit
	ErrInvalidConfiguration = errors.New("invalid run configuration")

	// ErrRunAlreadyInProgress is returned when a run is requested while another is draining
	ErrRunAlreadyInProgress = errors.New("a run is already in progress")
)

// errEmptyContent is recorded when a generator returns neither content nor an error
var errEmptyContent = errors.New("Empty response from model")

const emptyErrorMessage = "API Error"

// authSignatures are the generator messages that mean the API key was rejected
var authSignatures = []string{
	"requested entity was not found",
	"entity not found",
}

// IsAuthorizationError reports whether err signals rejected generator credentials
func IsAuthorizationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, interfaces.ErrAuthorization) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range authSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// errorMessage is the text recorded on a failed item
func errorMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return emptyErrorMessage
}
