package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisposerRunsInReverseOrder(t *testing.T) {
	var d disposer
	var order []int
	d.add(func() { order = append(order, 1) })
	d.add(func() { order = append(order, 2) })
	d.add(func() { order = append(order, 3) })
	assert.Equal(t, 3, d.len())

	d.dispose()

	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Equal(t, 0, d.len())
}

func TestDisposerIsIdempotent(t *testing.T) {
	var d disposer
	calls := 0
	d.add(func() { calls++ })

	d.dispose()
	d.dispose()

	assert.Equal(t, 1, calls)
}

func TestDisposerAcceptsActionsAfterDispose(t *testing.T) {
	var d disposer
	d.dispose()

	called := false
	d.add(func() { called = true })
	d.dispose()

	assert.True(t, called)
}
