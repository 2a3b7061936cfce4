package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasilisp/pagechat/internal/panel"
	"go.uber.org/zap"
)

func TestRegistry(t *testing.T) {
	r := newRegistry(2, zap.NewNop())

	a := &panel.Controller{}
	b := &panel.Controller{}
	c := &panel.Controller{}

	idA := r.add(a)
	idB := r.add(b)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, r.len())

	// touch a so b becomes the least recently used
	got, ok := r.get(idA)
	require.True(t, ok)
	assert.Same(t, a, got)

	idC := r.add(c)
	assert.Equal(t, 2, r.len())

	_, ok = r.get(idB)
	assert.False(t, ok)
	_, ok = r.get(idC)
	assert.True(t, ok)

	assert.True(t, r.remove(idA))
	assert.False(t, r.remove(idA))
	assert.Equal(t, 1, r.len())
}
