// Package upstream holds the error model and circuit breaker shared by every
// remote generation and translation backend.
package upstream

import (
	"errors"
	"fmt"
)

// ErrQuotaExhausted matches any Error of KindQuota via errors.Is.
var ErrQuotaExhausted = errors.New("upstream quota exhausted")

// Kind classifies an upstream failure.
type Kind int

const (
	// KindGeneric covers network errors, timeouts, malformed responses
	// and anything else that is not a quota signal.
	KindGeneric Kind = iota
	// KindQuota means the provider refused the call for quota or rate limit
	// reasons.
	KindQuota
)

func (k Kind) String() string {
	if k == KindQuota {
		return "quota"
	}
	return "generic"
}

// Error is the single error type surfaced by provider adapters.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports quota errors as ErrQuotaExhausted.
func (e *Error) Is(target error) bool {
	return target == ErrQuotaExhausted && e.Kind == KindQuota
}

// Quota wraps err as a quota failure of provider.
func Quota(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindQuota, Err: err}
}

// Generic wraps err as a generic failure of provider.
func Generic(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindGeneric, Err: err}
}

// IsQuota reports whether err signals quota exhaustion.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExhausted)
}

// Classify wraps a raw error as an upstream Error. Errors that already carry
// a Kind are returned unchanged.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return Generic(provider, err)
}
