package update

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
)

// DefaultName resolves to the registry's configured default policy.
const DefaultName = "DEFAULT"

// Registry maps policy names to policies. Names are case-insensitive.
type Registry struct {
	mu          sync.RWMutex
	defaultName string
	policies    map[string]interfaces.UpdatePolicy
}

// NewRegistry returns an empty registry whose DEFAULT alias is defaultName.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		defaultName: strings.ToUpper(defaultName),
		policies:    make(map[string]interfaces.UpdatePolicy),
	}
}

// Register adds p under its own name. A later registration wins.
func (r *Registry) Register(p interfaces.UpdatePolicy) {
	r.RegisterAs(p.Name(), p)
}

// RegisterAs adds p under name.
func (r *Registry) RegisterAs(name string, p interfaces.UpdatePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[strings.ToUpper(name)] = p
}

// Get returns the policy for name; empty and DEFAULT select the default.
func (r *Registry) Get(name string) (interfaces.UpdatePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToUpper(name)
	if key == "" || key == DefaultName {
		key = r.defaultName
	}
	p, ok := r.policies[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownPolicy, name)
	}
	return p, nil
}

// Names lists the registered policy names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for n := range r.policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
