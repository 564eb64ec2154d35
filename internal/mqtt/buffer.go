package mqtt

import (
	"log/slog"
	"sync"

	"github.com/gammazero/deque"
)

const defaultQueueLimit = 64

// inboundQueue hands messages from the client's network goroutine to the
// coordinator loop. When full, the oldest message is dropped.
type inboundQueue struct {
	mu       sync.Mutex
	items    deque.Deque[Inbound]
	limit    int
	overflow bool // true if any message was dropped since the queue last emptied
}

func newInboundQueue(limit int) *inboundQueue {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return &inboundQueue{limit: limit}
}

func (q *inboundQueue) push(msg Inbound) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == q.limit {
		if !q.overflow {
			slog.Warn("mqtt: inbound queue full, dropping oldest", "limit", q.limit)
			q.overflow = true
		}
		q.items.PopFront()
	}
	q.items.PushBack(msg)
}

func (q *inboundQueue) pop() (Inbound, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		q.overflow = false
		return Inbound{}, false
	}
	return q.items.PopFront(), true
}

func (q *inboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
