package update

import (
	"testing"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry("noupdate")
	r.Register(NoUpdate{})
	simple := NewSimpleUpdate(24, 5, Deps{})
	r.Register(simple)

	for _, name := range []string{"", "DEFAULT", "default", "NoUpdate"} {
		p, err := r.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, NoUpdateName, p.Name())
	}

	p, err := r.Get("simple")
	require.NoError(t, err)
	assert.Same(t, simple, p)

	_, err = r.Get("NOPE")
	assert.ErrorIs(t, err, models.ErrUnknownPolicy)
	assert.ErrorIs(t, err, models.ErrPlatform)

	assert.Equal(t, []string{NoUpdateName, SimpleUpdateName}, r.Names())
}

func TestRegistry_UnknownDefault(t *testing.T) {
	r := NewRegistry("MISSING")
	r.Register(NoUpdate{})
	_, err := r.Get("DEFAULT")
	assert.ErrorIs(t, err, models.ErrUnknownPolicy)
}
