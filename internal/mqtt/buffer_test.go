package mqtt

import (
	"fmt"
	"sync"
	"testing"
)

func TestInboundQueueEmptyPop(t *testing.T) {
	q := newInboundQueue(4)
	if _, ok := q.pop(); ok {
		t.Error("expected nothing from empty queue")
	}
}

func TestInboundQueueFIFO(t *testing.T) {
	q := newInboundQueue(10)
	for i := 0; i < 5; i++ {
		q.push(Inbound{Topic: "t", Payload: []byte{byte(i)}})
	}
	if q.len() != 5 {
		t.Fatalf("expected len 5, got %d", q.len())
	}
	for i := 0; i < 5; i++ {
		msg, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		if msg.Payload[0] != byte(i) {
			t.Errorf("pop %d: got payload %d", i, msg.Payload[0])
		}
	}
	if q.len() != 0 {
		t.Errorf("expected empty queue, got %d", q.len())
	}
}

func TestInboundQueueOverflowDropsOldest(t *testing.T) {
	q := newInboundQueue(3)
	for i := 0; i < 6; i++ {
		q.push(Inbound{Payload: []byte{byte(i)}})
	}
	if q.len() != 3 {
		t.Fatalf("expected len 3, got %d", q.len())
	}
	for want := 3; want < 6; want++ {
		msg, _ := q.pop()
		if msg.Payload[0] != byte(want) {
			t.Errorf("got %d, want %d", msg.Payload[0], want)
		}
	}
}

func TestInboundQueueDefaultLimit(t *testing.T) {
	q := newInboundQueue(0)
	if q.limit != defaultQueueLimit {
		t.Errorf("limit: got %d, want %d", q.limit, defaultQueueLimit)
	}
}

func TestInboundQueueConcurrentPush(t *testing.T) {
	q := newInboundQueue(1000)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.push(Inbound{Topic: fmt.Sprintf("%d/%d", g, i)})
			}
		}(g)
	}
	wg.Wait()
	if q.len() != 500 {
		t.Errorf("expected 500 messages, got %d", q.len())
	}
}
