package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider failure for retry decisions.
type Kind int

const (
	// KindTransient covers network timeouts and 5xx responses. Retryable.
	KindTransient Kind = iota
	// KindRateLimited is a 429 from the provider. Retryable.
	KindRateLimited
	// KindInvalidModel covers bad credentials or an unknown model. Fatal
	// for the request, never retried.
	KindInvalidModel
	// KindMalformed is an undecodable or empty response body. Retried once.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidModel:
		return "invalid_model"
	case KindMalformed:
		return "malformed_response"
	}
	return "unknown"
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsInvalidModel reports whether err is fatal for its request.
func IsInvalidModel(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidModel
}

// IsMalformed reports whether err is a malformed-response failure.
func IsMalformed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindMalformed
}

// IsRetryable reports whether err may be retried without bound beyond the
// attempt budget. Malformed responses are excluded; the dispatcher grants
// them a single extra attempt.
func IsRetryable(err error) bool {
	k, ok := kindOf(err)
	if !ok {
		// Unclassified errors come from the transport layer and are
		// treated as transient.
		return err != nil
	}
	return k == KindTransient || k == KindRateLimited
}

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status == http.StatusUnprocessableEntity:
		return KindInvalidModel
	case status == http.StatusRequestTimeout, status >= 500:
		return KindTransient
	default:
		return KindMalformed
	}
}

func statusError(providerName string, status int, body []byte) *Error {
	return &Error{
		Kind:     classifyStatus(status),
		Provider: providerName,
		Status:   status,
		Message:  truncate(string(body), 200),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
