// Package tickers implements the ticker grammar: full tickers
// ("<provider>@<query>"), local tickers, datatype tickers ("<entity>|<type>"),
// provider codes and query tickers.
//
// Every typed ticker is built through a validating constructor, so a value of
// any of these types is either the zero value (absent) or grammatically valid.
package tickers

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator divides the provider code from the query ticker in a full ticker.
	Separator = "@"
	// Pipe divides the entity from the datatype in a datatype ticker.
	Pipe = "|"
)

// Kind identifies which grammar a ticker satisfies.
type Kind int

const (
	KindFull Kind = iota + 1
	KindLocal
	KindDataType
	KindProvider
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full ticker"
	case KindLocal:
		return "local ticker"
	case KindDataType:
		return "datatype ticker"
	case KindProvider:
		return "provider code"
	case KindQuery:
		return "query ticker"
	default:
		return "unknown ticker"
	}
}

// ErrInvalidTicker is matched by every InvalidTickerError.
var ErrInvalidTicker = errors.New("invalid ticker")

// InvalidTickerError reports a string that fails a ticker grammar.
type InvalidTickerError struct {
	Input  string
	Kind   Kind
	Reason string
}

func (e *InvalidTickerError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *InvalidTickerError) Is(target error) bool {
	return target == ErrInvalidTicker
}

func invalid(input string, kind Kind, reason string) error {
	return &InvalidTickerError{Input: input, Kind: kind, Reason: reason}
}

// Ticker is implemented by the five ticker kinds and nothing else.
type Ticker interface {
	String() string
	Kind() Kind
	IsZero() bool
	isTicker()
}

// FullTicker is "<ProviderCode>@<QueryTicker>".
type FullTicker struct{ text string }

// LocalTicker is a store-private alias with no separator.
type LocalTicker struct{ text string }

// ProviderCode names a provider; same syntax as a LocalTicker.
type ProviderCode struct{ text string }

// DataTypeTicker is "<entity>|<datatype>" with no separator.
type DataTypeTicker struct{ text string }

// QueryTicker is the opaque key a provider understands. Only non-empty is required.
type QueryTicker struct{ text string }

func (t FullTicker) String() string     { return t.text }
func (t LocalTicker) String() string    { return t.text }
func (t ProviderCode) String() string   { return t.text }
func (t DataTypeTicker) String() string { return t.text }
func (t QueryTicker) String() string    { return t.text }

func (FullTicker) Kind() Kind     { return KindFull }
func (LocalTicker) Kind() Kind    { return KindLocal }
func (ProviderCode) Kind() Kind   { return KindProvider }
func (DataTypeTicker) Kind() Kind { return KindDataType }
func (QueryTicker) Kind() Kind    { return KindQuery }

func (t FullTicker) IsZero() bool     { return t.text == "" }
func (t LocalTicker) IsZero() bool    { return t.text == "" }
func (t ProviderCode) IsZero() bool   { return t.text == "" }
func (t DataTypeTicker) IsZero() bool { return t.text == "" }
func (t QueryTicker) IsZero() bool    { return t.text == "" }

func (FullTicker) isTicker()     {}
func (LocalTicker) isTicker()    {}
func (ProviderCode) isTicker()   {}
func (DataTypeTicker) isTicker() {}
func (QueryTicker) isTicker()    {}

// NewFullTicker validates s as a full ticker.
func NewFullTicker(s string) (FullTicker, error) {
	if _, _, err := splitString(s); err != nil {
		return FullTicker{}, err
	}
	return FullTicker{text: s}, nil
}

// NewLocalTicker validates s as a local ticker.
func NewLocalTicker(s string) (LocalTicker, error) {
	if err := checkNotFull(s, KindLocal); err != nil {
		return LocalTicker{}, err
	}
	return LocalTicker{text: s}, nil
}

// NewProviderCode validates s as a provider code.
func NewProviderCode(s string) (ProviderCode, error) {
	if err := checkNotFull(s, KindProvider); err != nil {
		return ProviderCode{}, err
	}
	return ProviderCode{text: s}, nil
}

// NewDataTypeTicker validates s as a datatype ticker.
func NewDataTypeTicker(s string) (DataTypeTicker, error) {
	if err := checkNotFull(s, KindDataType); err != nil {
		return DataTypeTicker{}, err
	}
	if !strings.Contains(s, Pipe) {
		return DataTypeTicker{}, invalid(s, KindDataType, "missing "+Pipe)
	}
	return DataTypeTicker{text: s}, nil
}

// NewQueryTicker validates s as a query ticker.
func NewQueryTicker(s string) (QueryTicker, error) {
	if s == "" {
		return QueryTicker{}, invalid(s, KindQuery, "empty")
	}
	return QueryTicker{text: s}, nil
}

func checkNotFull(s string, kind Kind) error {
	if s == "" {
		return invalid(s, kind, "empty")
	}
	if strings.Contains(s, Separator) {
		return invalid(s, kind, "contains "+Separator)
	}
	return nil
}

// Parts returns the entity and datatype halves, split on the first pipe.
func (t DataTypeTicker) Parts() (entity, datatype string) {
	entity, datatype, _ = strings.Cut(t.text, Pipe)
	return entity, datatype
}

// Parse classifies s. Precedence is full, then datatype, then local, so a
// string holding both separators is always a FullTicker.
func Parse(s string) (Ticker, error) {
	switch {
	case s == "":
		return nil, invalid(s, KindLocal, "empty")
	case strings.Contains(s, Separator):
		return NewFullTicker(s)
	case strings.Contains(s, Pipe):
		return NewDataTypeTicker(s)
	default:
		return NewLocalTicker(s)
	}
}

func splitString(s string) (string, string, error) {
	provider, query, ok := strings.Cut(s, Separator)
	if !ok {
		return "", "", invalid(s, KindFull, "missing "+Separator)
	}
	if provider == "" {
		return "", "", invalid(s, KindFull, "empty provider code")
	}
	if query == "" {
		return "", "", invalid(s, KindFull, "empty query ticker")
	}
	return provider, query, nil
}

// SplitString splits a raw full ticker string.
func SplitString(s string) (ProviderCode, QueryTicker, error) {
	provider, query, err := splitString(s)
	if err != nil {
		return ProviderCode{}, QueryTicker{}, err
	}
	return ProviderCode{text: provider}, QueryTicker{text: query}, nil
}

// Split returns the provider and query halves of t. The zero FullTicker
// yields zero halves.
func Split(t FullTicker) (ProviderCode, QueryTicker) {
	if t.IsZero() {
		return ProviderCode{}, QueryTicker{}
	}
	provider, query, _ := strings.Cut(t.text, Separator)
	return ProviderCode{text: provider}, QueryTicker{text: query}
}

// Compose builds a full ticker. Split(Compose(p, q)) == (p, q).
func Compose(p ProviderCode, q QueryTicker) (FullTicker, error) {
	if p.IsZero() {
		return FullTicker{}, invalid("", KindProvider, "empty")
	}
	if q.IsZero() {
		return FullTicker{}, invalid("", KindQuery, "empty")
	}
	return FullTicker{text: p.text + Separator + q.text}, nil
}

// MustFull is NewFullTicker for literals; it panics on an invalid input.
func MustFull(s string) FullTicker {
	t, err := NewFullTicker(s)
	if err != nil {
		panic(err)
	}
	return t
}
