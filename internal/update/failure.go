package update

import (
	"errors"
	"fmt"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// FailureKind tells an update policy how to react to a failed fetch.
type FailureKind int

const (
	// FailureRecoverable covers transport and provider-internal errors.
	FailureRecoverable FailureKind = iota
	// FailureNoData means the provider had nothing new.
	FailureNoData
	// FailureNotFound means the provider confirmed the series is absent.
	FailureNotFound
	// FailureFatal covers configuration and invariant violations.
	FailureFatal
)

func (k FailureKind) String() string {
	switch k {
	case FailureNoData:
		return "no-data"
	case FailureNotFound:
		return "not-found"
	case FailureFatal:
		return "fatal"
	default:
		return "recoverable"
	}
}

// FetchFailure is the failure half of FetchAndWrite's result. Written is set
// when the requested series already reached the store before a later step
// (stamping, companion series) failed; the returned series is then what the
// store holds.
type FetchFailure struct {
	Kind    FailureKind
	Err     error
	Written bool
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *FetchFailure) Unwrap() error { return f.Err }

var fatalErrors = []error{
	models.ErrUnknownProvider,
	models.ErrUnknownStore,
	models.ErrUnknownPolicy,
	models.ErrPushOnly,
	models.ErrRemapOverflow,
	models.ErrInvalidRecord,
	models.ErrNotImplemented,
	models.ErrConfiguration,
	tickers.ErrInvalidTicker,
}

// Classify maps an error onto a FailureKind. A nil error gives nil.
func Classify(err error) *FetchFailure {
	if err == nil {
		return nil
	}
	kind := FailureRecoverable
	switch {
	case errors.Is(err, models.ErrNoData):
		kind = FailureNoData
	case errors.Is(err, models.ErrTickerNotFound):
		kind = FailureNotFound
	default:
		for _, target := range fatalErrors {
			if errors.Is(err, target) {
				kind = FailureFatal
				break
			}
		}
	}
	return &FetchFailure{Kind: kind, Err: err}
}
