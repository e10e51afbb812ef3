package providers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FailoverReason categorizes why a completion attempt failed.
type FailoverReason string

const (
	FailoverAuth      FailoverReason = "auth"
	FailoverRateLimit FailoverReason = "rate_limit"
	FailoverBilling   FailoverReason = "billing"
	FailoverTimeout   FailoverReason = "timeout"
	FailoverFormat    FailoverReason = "format"
	FailoverUnknown   FailoverReason = "unknown"
)

// FailoverError is a classified provider failure.
type FailoverError struct {
	Reason   FailoverReason
	Provider string
	Model    string
	Status   int
	Wrapped  error
}

func (e *FailoverError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("provider %s", e.Reason))
	if e.Provider != "" {
		sb.WriteString(fmt.Sprintf(" (%s/%s)", e.Provider, e.Model))
	}
	if e.Status > 0 {
		sb.WriteString(fmt.Sprintf(" [status %d]", e.Status))
	}
	if e.Wrapped != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Wrapped.Error())
	}
	return sb.String()
}

func (e *FailoverError) Unwrap() error {
	return e.Wrapped
}

// IsRetriable reports whether another endpoint may still succeed. Format
// errors mean the request itself is structurally wrong, so retrying any
// endpoint is pointless.
func (e *FailoverError) IsRetriable() bool {
	return e.Reason != FailoverFormat
}

var httpStatusPattern = regexp.MustCompile(`(?i)(?:status[:\s]+|HTTP/\d(?:\.\d)?\s+)(\d{3})\b`)

// extractHTTPStatus pulls a 3-digit HTTP status out of an error message.
// Returns 0 when none is found.
func extractHTTPStatus(msg string) int {
	m := httpStatusPattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return 0
	}
	status, err := strconv.Atoi(m[1])
	if err != nil || status < 100 || status > 599 {
		return 0
	}
	return status
}

var (
	rateLimitPatterns = []string{
		"rate limit", "rate_limit", "too many requests", "quota",
		"resource has been exhausted", "resource_exhausted",
		"usage limit", "overloaded",
	}
	billingPatterns = []string{
		"payment required", "insufficient credits", "credit balance",
		"billing", "insufficient balance",
	}
	timeoutPatterns = []string{
		"timeout", "timed out", "deadline exceeded",
	}
	authPatterns = []string{
		"api key", "invalid_api_key", "invalid token", "authentication",
		"re-authenticate", "unauthorized", "forbidden", "access denied",
		"expired", "no credentials",
	}
	formatPatterns = []string{
		"string should match pattern", "invalid request format",
		"must be valid", "is required",
	}
)

// ClassifyError maps a raw provider error to a FailoverError, or nil when
// the error is unclassifiable (callers treat nil as retriable-unknown) or
// is a user abort.
func ClassifyError(err error, provider, model string) *FailoverError {
	if err == nil {
		return nil
	}

	// User abort is not a provider failure.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FailoverError{Reason: FailoverTimeout, Provider: provider, Model: model, Wrapped: err}
	}

	msg := strings.ToLower(err.Error())
	status := extractHTTPStatus(msg)

	var he *HTTPError
	if errors.As(err, &he) {
		status = he.Status
	}

	mk := func(reason FailoverReason) *FailoverError {
		return &FailoverError{Reason: reason, Provider: provider, Model: model, Status: status, Wrapped: err}
	}

	switch status {
	case 401, 403:
		return mk(FailoverAuth)
	case 402:
		return mk(FailoverBilling)
	case 408:
		return mk(FailoverTimeout)
	case 429:
		return mk(FailoverRateLimit)
	case 400:
		return mk(FailoverFormat)
	}
	if status >= 500 {
		return mk(FailoverTimeout)
	}

	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return mk(FailoverRateLimit)
		}
	}
	for _, p := range billingPatterns {
		if strings.Contains(msg, p) {
			return mk(FailoverBilling)
		}
	}
	for _, p := range timeoutPatterns {
		if strings.Contains(msg, p) {
			return mk(FailoverTimeout)
		}
	}
	for _, p := range authPatterns {
		if strings.Contains(msg, p) {
			return mk(FailoverAuth)
		}
	}
	for _, p := range formatPatterns {
		if strings.Contains(msg, p) {
			return mk(FailoverFormat)
		}
	}

	return nil
}
