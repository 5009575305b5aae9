package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-dci/litnode/logging"
)

func TestBusSimple(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	m := "Hello, World!"
	x := ""

	bus.RegisterHandler("foo", func(e Event) Result {
		x = e.(FooEvent).msg
		return Continue
	})
	assert.Equal(t, 1, bus.CountHandlers("foo"))
	assert.Equal(t, 0, bus.CountHandlers("bar"))

	ok, err := bus.Publish(FooEvent{msg: m})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, m, x)
}

func TestBusAsync(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	c := make(chan uint8, 2)

	bus.RegisterHandler("foo", func(e Event) Result {
		c <- 42
		return Continue
	})

	_, err := bus.Publish(FooEvent{msg: "asdf", async: true})
	require.NoError(t, err)

	select {
	case r := <-c:
		assert.Equal(t, uint8(42), r)
	case <-time.After(time.Second):
		t.Fatal("async handler not invoked")
	}
	bus.Wait()
}

func TestBusCancel(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	calls := 0
	bus.RegisterHandler("foo", func(e Event) Result {
		calls++
		return Cancel
	})
	bus.RegisterHandler("foo", func(e Event) Result {
		calls++
		return Continue
	})

	ok, err := bus.Publish(FooEvent{msg: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)

	ok, _ = bus.Publish(UncancellableEvent{})
	assert.True(t, ok)
}

func TestBusHandlerPanic(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	bus.RegisterHandler("foo", func(e Event) Result {
		panic("boom")
	})
	ok, err := bus.Publish(FooEvent{msg: "x"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublishNonblockingNeedsAsync(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	assert.Error(t, bus.PublishNonblocking(FooEvent{}))
	assert.NoError(t, bus.PublishNonblocking(FooEvent{async: true}))
	bus.Wait()
}

type FooEvent struct {
	msg   string
	async bool
}

func (FooEvent) Name() string {
	return "foo"
}

func (e FooEvent) Flags() Flags {
	if e.async {
		return Async
	}
	return Normal
}

type UncancellableEvent struct{}

func (UncancellableEvent) Name() string { return "foo" }
func (UncancellableEvent) Flags() Flags { return Uncancellable }

type rawAsyncEvent struct{}

func (rawAsyncEvent) Name() string { return "foo" }
func (rawAsyncEvent) Flags() Flags { return asyncBit }

func TestPublishRejectsCancellableAsync(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	bus.RegisterHandler("foo", func(e Event) Result { return Continue })
	_, err := bus.Publish(rawAsyncEvent{})
	assert.Error(t, err)
}

func TestHandlersRunInOrder(t *testing.T) {
	bus := NewEventBus(logging.Nop())
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		bus.RegisterHandler("foo", func(e Event) Result {
			order = append(order, i)
			return Continue
		})
	}
	_, err := bus.Publish(FooEvent{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, order)
}
