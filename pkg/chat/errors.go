package chat

import (
	"context"
	"errors"
	"fmt"
)

const (
	ErrorUnknownProvider = "unknown_provider"
	ErrorNotImplemented  = "not_implemented"
	ErrorDecode          = "decode_error"
	ErrorDispatch        = "dispatch_error"
	ErrorTimeout         = "timeout"
	ErrorProvider        = "provider_error"
)

// Error represents a stable, categorized chat routing failure.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewError creates a categorized chat error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// NotImplementedError reports that a provider does not support a capability.
func NotImplementedError(provider string, capability string) error {
	return &Error{Category: ErrorNotImplemented, Detail: fmt.Sprintf("%s does not support %s", provider, capability)}
}

// UnknownProviderError reports an operation naming an unregistered provider.
func UnknownProviderError(name string) error {
	return &Error{Category: ErrorUnknownProvider, Detail: fmt.Sprintf("no provider registered as %q", name)}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}

	return ErrorProvider
}

// IsNotImplemented reports whether err is a provider capability gap.
func IsNotImplemented(err error) bool {
	return CategoryFromError(err) == ErrorNotImplemented
}
