package module

import "github.com/hellocym/SwarmClone/internal/message"

// QueueCapacity is the fixed bound on every module's task_queue and
// results_queue.
const QueueCapacity = 128

// Queue is a bounded FIFO of messages. It never blocks: TryPush reports
// failure instead of waiting when full (the router's drop-on-full policy),
// and TryPop reports absence instead of waiting when empty (the cooperative
// scheduler step polls rather than parking). This mirrors
// asyncio.Queue.put_nowait/get_nowait in the reference implementation.
type Queue struct {
	ch chan *message.Message
}

// NewQueue allocates a queue at the standard capacity.
func NewQueue() *Queue {
	return &Queue{ch: make(chan *message.Message, QueueCapacity)}
}

// TryPush attempts a non-blocking enqueue. ok is false if the queue was at
// capacity; the caller (the router) is responsible for logging/metrics on
// that case, since the queue itself has no notion of "which module" it
// belongs to.
func (q *Queue) TryPush(m *message.Message) (ok bool) {
	select {
	case q.ch <- m:
		return true
	default:
		return false
	}
}

// TryPop attempts a non-blocking dequeue.
func (q *Queue) TryPop() (m *message.Message, ok bool) {
	select {
	case m := <-q.ch:
		return m, true
	default:
		return nil, false
	}
}

// Len reports the number of currently queued messages.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Drain empties the queue immediately, discarding every pending message.
// Used for barge-in (TTS's processed_queue).
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
