package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTransient marks failures worth retrying: rate limits, timeouts,
	// provider outages.
	ErrTransient = errors.New("transient provider failure")

	// ErrFatal marks failures retrying cannot fix: malformed responses,
	// authentication problems, contract violations.
	ErrFatal = errors.New("fatal provider failure")

	// ErrNotFound marks an id the provider no longer knows. The item is
	// skipped, not retried.
	ErrNotFound = errors.New("record not found")
)

// RateLimitError is a transient failure carrying the provider's requested
// wait, parsed from a Retry-After response.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// Is makes rate limits classify as transient under errors.Is.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrTransient
}

// Wrap builds an error that includes provider context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, provider, operation, message string, err error) error {
	detail := buildDetail(provider, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(provider, operation, message string) string {
	parts := make([]string, 0, 3)
	if provider = strings.TrimSpace(provider); provider != "" {
		parts = append(parts, provider)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "provider failure"
	}
	return strings.Join(parts, ": ")
}

// IsTransient reports whether err warrants an automatic retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// RetryAfterHint extracts the provider's requested wait, if the error
// carries one.
func RetryAfterHint(err error) (time.Duration, bool) {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		return rateErr.RetryAfter, true
	}
	return 0, false
}
