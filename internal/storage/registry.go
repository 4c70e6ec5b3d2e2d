// Package storage holds the store registry and the operations shared by every
// backend: raw ticker dispatch, retrieve-with-metadata and store-to-store transfer.
package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
)

const (
	// DefaultCode resolves to the configured default store.
	DefaultCode = "DEFAULT"
	// SQLCode resolves to the configured relational store.
	SQLCode = "SQL"
)

// Registry maps store codes to stores.
type Registry struct {
	stores      map[string]interfaces.Storage
	defaultCode string
	sqlCode     string
}

// NewRegistry returns an empty registry. defaultCode is what "DEFAULT"
// resolves to and sqlCode is what "SQL" resolves to.
func NewRegistry(defaultCode, sqlCode string) *Registry {
	return &Registry{
		stores:      make(map[string]interfaces.Storage),
		defaultCode: defaultCode,
		sqlCode:     sqlCode,
	}
}

// Register adds s under code. A later registration for the same code wins.
func (r *Registry) Register(code string, s interfaces.Storage) {
	r.stores[code] = s
}

// Resolve maps a requested code to a registered code. "DEFAULT" is
// case-insensitive. The "SQL" marker is followed exactly once; a target
// that is itself "SQL" is ErrRemapOverflow.
func (r *Registry) Resolve(code string) (string, error) {
	if code == "" || strings.EqualFold(code, DefaultCode) {
		code = r.defaultCode
	}
	if code == SQLCode {
		code = r.sqlCode
		if code == SQLCode {
			return "", fmt.Errorf("%w: %q maps to itself", models.ErrRemapOverflow, SQLCode)
		}
	}
	if _, ok := r.stores[code]; !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownStore, code)
	}
	return code, nil
}

// Get returns the store for code after resolving aliases.
func (r *Registry) Get(code string) (interfaces.Storage, error) {
	resolved, err := r.Resolve(code)
	if err != nil {
		return nil, err
	}
	return r.stores[resolved], nil
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.stores))
	for code := range r.stores {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Close closes every registered store.
func (r *Registry) Close() error {
	var errs []error
	for code, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store %s: %w", code, err))
		}
	}
	return errors.Join(errs...)
}
