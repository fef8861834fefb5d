package job

import "time"

// Event is one progress update emitted by a job's worker. Within a job,
// Current is non-decreasing per stage and Total is stable once known.
type Event struct {
	JobID     string
	Stage     string
	Current   int
	Total     int
	StartedAt time.Time
}

const defaultProgressBuffer = 64

// Channel is the bounded per-job progress queue: written only by the
// goroutine reading that job's worker, read only by the one consumer
// mediating the job's status. No cross-job synchronization.
type Channel struct {
	ch chan Event
}

// NewChannel builds a queue with the given buffer size; buf <= 0 selects
// the default.
func NewChannel(buf int) *Channel {
	if buf <= 0 {
		buf = defaultProgressBuffer
	}
	return &Channel{ch: make(chan Event, buf)}
}

// Publish enqueues an event without blocking. When the consumer lags and
// the buffer is full the event is dropped; progress is advisory and the
// terminal outcome travels via the job record, never through this queue.
func (c *Channel) Publish(e Event) {
	select {
	case c.ch <- e:
		progressEventsTotal.Inc()
	default:
		progressDroppedTotal.Inc()
	}
}

// TryRecv returns one buffered event without blocking, for draining the
// queue after the job reached a terminal state.
func (c *Channel) TryRecv() (Event, bool) {
	select {
	case e := <-c.ch:
		return e, true
	default:
		return Event{}, false
	}
}

// Recv blocks for one event up to timeout. ok=false on timeout, which the
// consumer uses as its cue to re-check the job's status.
func (c *Channel) Recv(timeout time.Duration) (Event, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case e := <-c.ch:
		return e, true
	case <-t.C:
		return Event{}, false
	}
}
