package models

import (
	"errors"
	"fmt"
)

// ErrPlatform is the base of configuration and invariant failures.
var ErrPlatform = errors.New("platform error")

type platformError struct{ msg string }

func (e *platformError) Error() string { return e.msg }

func (e *platformError) Is(target error) bool { return target == ErrPlatform }

func newPlatformError(msg string) error { return &platformError{msg: msg} }

// Platform errors. Each matches errors.Is(err, ErrPlatform).
var (
	ErrUnknownProvider = newPlatformError("unknown provider code")
	ErrUnknownStore    = newPlatformError("unknown store code")
	ErrUnknownPolicy   = newPlatformError("unknown update policy")
	ErrPushOnly        = newPlatformError("push-only series cannot be fetched")
	ErrRemapOverflow   = newPlatformError("store code remapped more than once")
	ErrInvalidRecord   = newPlatformError("invalid series record")
	ErrNotImplemented  = newPlatformError("not implemented")
	ErrNoData          = newPlatformError("provider returned no new data")
	ErrConfiguration   = newPlatformError("configuration error")
)

// ErrTickerNotFound is matched by every TickerNotFoundError.
var ErrTickerNotFound = errors.New("ticker not found")

// TickerNotFoundError reports that a provider or store has no data for a ticker.
type TickerNotFoundError struct {
	Ticker string
	Source string
}

func (e *TickerNotFoundError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("ticker %q not found", e.Ticker)
	}
	return fmt.Sprintf("ticker %q not found in %s", e.Ticker, e.Source)
}

func (e *TickerNotFoundError) Is(target error) bool { return target == ErrTickerNotFound }

// NotFound builds a TickerNotFoundError.
func NotFound(ticker, source string) error {
	return &TickerNotFoundError{Ticker: ticker, Source: source}
}

// FetchError is returned by the fetch entry point. It names the ticker, the
// store and the collaborator that failed.
type FetchError struct {
	Ticker       string
	Store        string
	Collaborator string
	Err          error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q (store %s, %s): %v", e.Ticker, e.Store, e.Collaborator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
