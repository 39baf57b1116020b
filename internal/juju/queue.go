package juju

// StatusQueue is a bounded FIFO of status lines.
//
// Its capacity is the number of observed applications. Push never blocks:
// when the queue is full the oldest line is dropped, so a slow consumer sees
// the most recent updates rather than a growing backlog.
type StatusQueue struct {
	ch chan string
}

// NewStatusQueue creates a queue holding at most capacity lines.
// A capacity below one is raised to one.
func NewStatusQueue(capacity int) *StatusQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &StatusQueue{ch: make(chan string, capacity)}
}

// Push appends line, dropping the oldest line if the queue is full.
func (q *StatusQueue) Push(line string) {
	for {
		select {
		case q.ch <- line:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// C returns the channel lines are received from.
func (q *StatusQueue) C() <-chan string {
	return q.ch
}

// Len returns the number of queued lines.
func (q *StatusQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *StatusQueue) Cap() int {
	return cap(q.ch)
}
