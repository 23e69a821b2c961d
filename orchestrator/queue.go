package orchestrator

// promptQueue holds prompts that arrived while an execution was in flight.
// Enqueue happens only while busy; the head is dequeued exactly once per
// transition back to idle, and it is removed before re-dispatch so a failing
// prompt cannot loop.
type promptQueue struct {
	items []QueuedPrompt
}

func (q *promptQueue) Enqueue(p QueuedPrompt) {
	q.items = append(q.items, p)
}

// DequeueHead removes and returns the oldest prompt.
func (q *promptQueue) DequeueHead() (QueuedPrompt, bool) {
	if len(q.items) == 0 {
		return QueuedPrompt{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

func (q *promptQueue) Len() int { return len(q.items) }

// Snapshot returns a copy of the pending prompts in order.
func (q *promptQueue) Snapshot() []QueuedPrompt {
	out := make([]QueuedPrompt, len(q.items))
	copy(out, q.items)
	return out
}
