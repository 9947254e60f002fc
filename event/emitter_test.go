package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter[string]("connect")

	var got []string
	e.On(func(v string) { got = append(got, "a:"+v) })
	e.On(func(v string) { got = append(got, "b:"+v) })

	n := e.Emit("Sui")

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a:Sui", "b:Sui"}, got)
}

func TestEmitterOff(t *testing.T) {
	e := NewEmitter[int]("test")

	calls := 0
	id := e.On(func(int) { calls++ })
	require.True(t, e.Off(id))
	assert.False(t, e.Off(id), "second Off must report missing subscription")

	e.Emit(1)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, e.ListenerCount())
}

func TestEmitterOnceRemovedAfterFirstEmit(t *testing.T) {
	e := NewEmitter[int]("test")

	calls := 0
	e.Once(func(int) { calls++ })
	e.On(func(int) {})

	e.Emit(1)
	e.Emit(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, e.ListenerCount())
}

func TestEmitterRecoversPanickingHandler(t *testing.T) {
	e := NewEmitter[int]("test")

	reached := false
	e.On(func(int) { panic("boom") })
	e.On(func(int) { reached = true })

	assert.NotPanics(t, func() { e.Emit(1) })
	assert.True(t, reached)
}

func TestEmitterHandlerMayUnsubscribeDuringEmit(t *testing.T) {
	e := NewEmitter[int]("test")

	var id string
	calls := 0
	id = e.On(func(int) {
		calls++
		e.Off(id)
	})

	e.Emit(1)
	e.Emit(2)
	assert.Equal(t, 1, calls)
}

func TestEmitterClear(t *testing.T) {
	e := NewEmitter[int]("test")
	e.On(func(int) {})
	e.On(func(int) {})

	e.Clear()
	assert.Equal(t, 0, e.Emit(1))
}
