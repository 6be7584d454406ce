package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// DefaultPrompt asks the model for a handful of underscore-separated keywords.
const DefaultPrompt = "You are a filename generator. Describe the image using only 6 keywords maximum, " +
	"separated by underscores. Focus on the main subject. Ignore background and surface. " +
	"Example: red_mug_steam_handle_ceramic"

// Config represents the settings for one describe request
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Prompt      string
}

// Describer turns image bytes into a short free-text description
type Describer interface {
	Describe(ctx context.Context, image []byte, config Config) (string, error)
}

// DescribeError is returned by every Describer on transport or protocol failure.
type DescribeError struct {
	Provider   string
	StatusCode int  // non-zero for non-2xx responses
	Timeout    bool // the request deadline expired
	Malformed  bool // the response could not be decoded or had no content
	Err        error
}

func (e *DescribeError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: received non-200 status code: %d: %v", e.Provider, e.StatusCode, e.Err)
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out: %v", e.Provider, e.Err)
	case e.Malformed:
		return fmt.Sprintf("%s: malformed response: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
}

func (e *DescribeError) Unwrap() error {
	return e.Err
}

// RequestError wraps a transport error, flagging deadlines and network timeouts.
func RequestError(provider string, err error) *DescribeError {
	return &DescribeError{Provider: provider, Timeout: isTimeout(err), Err: err}
}

// StatusError builds the error for a non-2xx response.
func StatusError(provider string, code int, body string) *DescribeError {
	return &DescribeError{Provider: provider, StatusCode: code, Err: errors.New(body)}
}

// MalformedError builds the error for a response without usable content.
func MalformedError(provider string, err error) *DescribeError {
	return &DescribeError{Provider: provider, Malformed: true, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
