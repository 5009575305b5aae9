package eventbus

// An Event is something that happened.  Handlers are picked by Name.
type Event interface {
	Name() string
	Flags() Flags
}

// Flags say how an event is delivered.
type Flags uint8

const (
	// Normal events run their handlers in order on the publisher's
	// goroutine and may be cancelled by any of them.
	Normal Flags = 0

	// Uncancellable events ignore handlers asking for a cancel.
	Uncancellable Flags = 1 << 0

	// asyncBit on its own is invalid, use Async.
	asyncBit Flags = 1 << 1

	// Async events get each handler called on its own goroutine.  The
	// publisher doesn't wait, so they can't be cancelled either.
	Async = asyncBit | Uncancellable
)

func (f Flags) async() bool {
	return f&asyncBit != 0
}

func (f Flags) cancellable() bool {
	return f&Uncancellable == 0
}

// Result is a handler's verdict on an event.
type Result uint8

const (
	Continue Result = iota
	Cancel
)

// HandlerFunc reacts to one event.
type HandlerFunc func(Event) Result
