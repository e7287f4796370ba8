package emit

// BufferedEmitter implements Emitter with a bounded in-memory buffer.
//
// Events go into a fixed-capacity channel. When the buffer is full, the
// oldest event is dropped to make room, so Emit never blocks the workflow
// no matter how far consumers fall behind.
//
// Use cases:
//   - Testing: capture events, then Flush and assert
//   - Dashboards: a goroutine periodically flushes to a sink
//
// Example:
//
//	emitter := emit.NewBufferedEmitter(256)
//	engine, _ := flow.New(reducer, st, emitter)
//	_, _ = engine.Run(ctx, "run-001", initial)
//
//	for _, ev := range emitter.Flush() {
//	    fmt.Println(ev.Msg)
//	}
type BufferedEmitter struct {
	ch chan Event
}

// DefaultBufferCapacity is used when NewBufferedEmitter is given a
// non-positive capacity.
const DefaultBufferCapacity = 1024

// NewBufferedEmitter creates a BufferedEmitter holding at most capacity
// events. Non-positive capacity falls back to DefaultBufferCapacity.
func NewBufferedEmitter(capacity int) *BufferedEmitter {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &BufferedEmitter{
		ch: make(chan Event, capacity),
	}
}

// Emit buffers the event, dropping the oldest buffered event when full.
// Never blocks.
func (b *BufferedEmitter) Emit(event Event) {
	for {
		select {
		case b.ch <- event:
			return
		default:
		}
		// Full: drop the oldest and retry. The drain may lose the race
		// with a concurrent Flush; the loop handles either outcome.
		select {
		case <-b.ch:
		default:
		}
	}
}

// Flush drains and returns all currently buffered events in emission order.
func (b *BufferedEmitter) Flush() []Event {
	events := make([]Event, 0, len(b.ch))
	for {
		select {
		case ev := <-b.ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// Len reports how many events are currently buffered.
func (b *BufferedEmitter) Len() int {
	return len(b.ch)
}
