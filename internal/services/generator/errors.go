package generator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"google.golang.org/genai"
)

var (
	// ErrAuthorization marks failures caused by a rejected or unknown API key
	ErrAuthorization = interfaces.ErrAuthorization

	// ErrMalformedResponse is returned when the model text is not the expected JSON object
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("Empty response from model")
)

// classifyError wraps provider errors that indicate bad credentials with
// ErrAuthorization. Anything else is returned unchanged.
func classifyError(err error) error {
	if err == nil || errors.Is(err, ErrAuthorization) {
		return err
	}
	if isAuthError(err) {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	return err
}

func isAuthError(err error) bool {
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		switch geminiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
		if strings.EqualFold(geminiErr.Status, "UNAUTHENTICATED") || strings.EqualFold(geminiErr.Status, "PERMISSION_DENIED") {
			return true
		}
		if strings.Contains(strings.ToLower(geminiErr.Message), "api key not valid") {
			return true
		}
	}

	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		switch claudeErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}

	// Gemini answers an unknown key or model with a 404 carrying this text
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "requested entity was not found")
}
