package proxy

import (
	"errors"
	"fmt"

	"github.com/minios-linux/nameproxy/dict"
)

var (
	// ErrNoTranslatorConfigured is returned when the engine has no translator.
	ErrNoTranslatorConfigured = errors.New("no translator configured")
	// ErrTranslatorFailure matches every *TranslatorError.
	ErrTranslatorFailure = errors.New("translator failure")
	// ErrProxyPoolExhausted matches every *PoolExhaustedError.
	ErrProxyPoolExhausted = errors.New("proxy pool exhausted")
	// ErrReverseMappingNotFound matches every *ReverseMappingNotFound.
	ErrReverseMappingNotFound = errors.New("reverse mapping not found")
)

// TranslatorError wraps a failed translator call.
type TranslatorError struct {
	Message string
	Err     error
}

func (e *TranslatorError) Error() string {
	return "translator failure: " + e.Message
}

func (e *TranslatorError) Is(target error) bool { return target == ErrTranslatorFailure }

func (e *TranslatorError) Unwrap() error { return e.Err }

// PoolExhaustedError reports that a call needed more distinct placeholders
// of Role than the pool holds.
type PoolExhaustedError struct {
	Role dict.Role
	Size int
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("proxy pool exhausted for role %s (%d placeholders)", e.Role, e.Size)
}

func (e *PoolExhaustedError) Is(target error) bool { return target == ErrProxyPoolExhausted }

// ReverseMappingNotFound is a non-fatal warning: the translator output held
// fewer occurrences of a proxy's expected form than the source had positions.
type ReverseMappingNotFound struct {
	ProxyID  int    `json:"proxy_id"`
	Expected string `json:"expected"`
	Wanted   int    `json:"wanted"`
	Found    int    `json:"found"`
	Partial  bool   `json:"partial"`
}

func (e *ReverseMappingNotFound) Error() string {
	if e.Partial {
		return fmt.Sprintf("reverse mapping for proxy %d (%q): found %d of %d occurrences", e.ProxyID, e.Expected, e.Found, e.Wanted)
	}
	return fmt.Sprintf("reverse mapping for proxy %d (%q): not found", e.ProxyID, e.Expected)
}

func (e *ReverseMappingNotFound) Is(target error) bool { return target == ErrReverseMappingNotFound }
