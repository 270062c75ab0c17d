package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrEmptyResponse is returned by Complete when the model produced no answer text.
var ErrEmptyResponse = errors.New("empty response from model")

// StatusError is a non-200 reply from a provider endpoint.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s: HTTP %d: %s", e.Provider, e.Code, e.Message)
}

// Temporary reports whether the same request may succeed later: rate
// limits and server-side failures.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// TransportError is a request that never got a reply.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, friendlyProviderError(e.Err))
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether the failure looks like a service that is down
// or still starting, rather than a bad address.
func (e *TransportError) Temporary() bool {
	var netErr net.Error
	switch {
	case errors.Is(e.Err, syscall.ECONNREFUSED), errors.Is(e.Err, syscall.ECONNRESET):
		return true
	case errors.Is(e.Err, io.EOF), errors.Is(e.Err, io.ErrUnexpectedEOF):
		return true
	case errors.As(e.Err, &netErr) && netErr.Timeout():
		return true
	}
	return false
}

// readStatusError drains an error reply into a StatusError.
func readStatusError(provider string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	return &StatusError{
		Provider: provider,
		Code:     resp.StatusCode,
		Message:  parseProviderError(provider, resp.StatusCode, body),
	}
}

// parseProviderError picks the message out of an error body. OpenAI and
// Anthropic nest it under "error", Google and Ollama sometimes do not.
func parseProviderError(providerName string, statusCode int, body []byte) string {
	var errResp struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(errResp.Error, &nested) == nil && nested.Message != "":
			return nested.Message
		case json.Unmarshal(errResp.Error, &flat) == nil && flat != "":
			return flat
		case errResp.Message != "":
			return errResp.Message
		}
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		return "authentication failed, check api_key in the config"
	case statusCode == http.StatusForbidden:
		return "the API key may not use this model"
	case statusCode == http.StatusNotFound:
		return fmt.Sprintf("model or endpoint not found on %s", providerName)
	case statusCode == http.StatusTooManyRequests:
		return "rate limited"
	case statusCode >= 500:
		return http.StatusText(statusCode)
	}

	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// friendlyProviderError shortens the usual dial errors.
func friendlyProviderError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the service running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check base_url)"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "connection timed out (service may be starting up)"
	case strings.Contains(msg, "reset by peer"):
		return "connection reset by server"
	case strings.Contains(msg, "EOF"):
		return "connection closed unexpectedly"
	}
	return msg
}
