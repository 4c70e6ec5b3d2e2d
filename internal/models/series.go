// Package models defines data structures for econdata
package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Observation is one dated value. An invalid Value is a missing observation.
type Observation struct {
	Date  time.Time  `json:"date"`
	Value null.Float `json:"value"`
}

// Obs builds a present observation.
func Obs(date time.Time, value float64) Observation {
	return Observation{Date: date, Value: null.FloatFrom(value)}
}

// MissingObs builds a missing observation.
func MissingObs(date time.Time) Observation {
	return Observation{Date: date}
}

// Series is an ordered run of observations with strictly increasing dates.
type Series struct {
	Ticker       string        `json:"ticker"`
	Observations []Observation `json:"observations"`
}

// NewSeries sorts observations by date and rejects duplicate dates. The
// input slice is copied.
func NewSeries(ticker string, obs []Observation) (Series, error) {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	for i := 1; i < len(sorted); i++ {
		if !sorted[i].Date.After(sorted[i-1].Date) {
			return Series{}, fmt.Errorf("series %s: duplicate date %s", ticker, sorted[i].Date.Format("2006-01-02"))
		}
	}
	return Series{Ticker: ticker, Observations: sorted}, nil
}

// Len returns the number of observations, missing ones included.
func (s Series) Len() int {
	return len(s.Observations)
}

// IsEmpty reports whether the series has no present values.
func (s Series) IsEmpty() bool {
	for _, o := range s.Observations {
		if o.Value.Valid {
			return false
		}
	}
	return true
}

// DropMissing returns a copy holding only present observations.
func (s Series) DropMissing() Series {
	out := Series{Ticker: s.Ticker, Observations: make([]Observation, 0, len(s.Observations))}
	for _, o := range s.Observations {
		if o.Value.Valid {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	obs := make([]Observation, len(s.Observations))
	copy(obs, s.Observations)
	return Series{Ticker: s.Ticker, Observations: obs}
}

// WithTicker returns a copy named ticker.
func (s Series) WithTicker(ticker string) Series {
	c := s.Clone()
	c.Ticker = ticker
	return c
}

// Dates returns the observation dates in order.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Date
	}
	return out
}

// Values returns the observation values; missing values are NaN.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		if o.Value.Valid {
			out[i] = o.Value.Float64
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Last returns the final observation.
func (s Series) Last() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// Equal compares dates (as instants) and values, ignoring the ticker name.
func (s Series) Equal(other Series) bool {
	if len(s.Observations) != len(other.Observations) {
		return false
	}
	for i, o := range s.Observations {
		p := other.Observations[i]
		if !o.Date.Equal(p.Date) || o.Value.Valid != p.Value.Valid {
			return false
		}
		if o.Value.Valid && o.Value.Float64 != p.Value.Float64 {
			return false
		}
	}
	return true
}
