package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ N int }

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchTyped(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, int](bus, "test.ping", HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) {
		return cmd.N * 2, nil
	}))

	got, err := Dispatch[pingCommand, int](context.Background(), bus, pingCommand{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Dispatch[pingCommand, string](context.Background(), bus, pingCommand{N: 1})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = bus.Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[pingCommand, int](context.Background(), nil, pingCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
	assert.Equal(t, []string{"test.ping"}, bus.Keys())
}

func TestRegisterDuplicatePanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) { return 0, nil })
	RegisterHandler[pingCommand, int](bus, "test.ping", h)
	assert.Panics(t, func() { RegisterHandler[pingCommand, int](bus, "test.ping", h) })
	assert.Panics(t, func() { bus.RegisterRaw("", nil) })
}
