package pixverse

import (
	"errors"
	"fmt"
)

// ProviderError describes a failed provider call. Code and Message come from
// the response envelope; Err is set for transport and decoding failures.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s failed (http %d): %v", e.Op, e.StatusCode, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s failed: %s (code %d)", e.Op, e.Message, e.Code)
	default:
		return fmt.Sprintf("%s failed (code %d, http %d)", e.Op, e.Code, e.StatusCode)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Rejected reports whether the provider answered with a parseable envelope
// carrying a non-zero error code.
func (e *ProviderError) Rejected() bool { return e.Err == nil && e.Code != 0 }

func (e *ProviderError) provider() *ProviderError { return e }

// UploadError is returned by UploadImage.
type UploadError struct{ ProviderError }

// GenerationRequestError is returned by GenerateVideo.
type GenerationRequestError struct{ ProviderError }

// StatusCheckError is returned by VideoResult.
type StatusCheckError struct{ ProviderError }

// AsProviderError extracts the ProviderError behind any of the typed errors.
func AsProviderError(err error) (*ProviderError, bool) {
	var target interface{ provider() *ProviderError }
	if errors.As(err, &target) {
		return target.provider(), true
	}
	return nil, false
}
