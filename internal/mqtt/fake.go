package mqtt

import (
	"errors"
	"sync"

	"github.com/sweeney/friendship-lamp/internal/fault"
)

// Published is one message recorded by a FakeSession.
type Published struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// FakeBroker routes messages between FakeSessions in memory. Exact topic
// matching only; wildcards are not needed by the lamp.
type FakeBroker struct {
	mu       sync.Mutex
	sessions []*FakeSession

	// DialError, if set, is returned by Dial.
	DialError error
	// Dials counts Dial calls, including failed ones.
	Dials int
}

// NewFakeBroker creates an empty broker.
func NewFakeBroker() *FakeBroker {
	return &FakeBroker{}
}

// Dial is a Dialer that attaches a new FakeSession to the broker.
func (b *FakeBroker) Dial(opts SessionOptions) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Dials++
	if b.DialError != nil {
		return nil, b.DialError
	}
	s := &FakeSession{
		Options: opts,
		broker:  b,
		queue:   newInboundQueue(opts.QueueLimit),
		subs:    map[string]byte{},
	}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Sessions returns every session dialled so far, oldest first.
func (b *FakeBroker) Sessions() []*FakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakeSession(nil), b.sessions...)
}

// Last returns the most recently dialled session, or nil.
func (b *FakeBroker) Last() *FakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sessions) == 0 {
		return nil
	}
	return b.sessions[len(b.sessions)-1]
}

// Inject delivers a message to every open subscriber of topic, as if some
// other client had published it.
func (b *FakeBroker) Inject(topic string, payload []byte) {
	b.mu.Lock()
	targets := append([]*FakeSession(nil), b.sessions...)
	b.mu.Unlock()
	for _, s := range targets {
		s.deliver(topic, payload)
	}
}

// Drop severs s uncleanly: its will is published and further calls fail.
func (b *FakeBroker) Drop(s *FakeSession) {
	s.mu.Lock()
	s.lost = true
	will := s.Options.Will
	s.mu.Unlock()
	if will.Topic != "" {
		b.Inject(will.Topic, will.Payload)
	}
}

// FakeSession is an in-memory Session for tests.
type FakeSession struct {
	Options SessionOptions

	broker *FakeBroker
	queue  *inboundQueue

	mu        sync.Mutex
	subs      map[string]byte
	published []Published
	lost      bool
	closed    bool

	// PublishError, if set, is returned by Publish.
	PublishError error
}

var errSessionLost = errors.New("session lost")

// Publish records the message and routes it through the broker.
func (s *FakeSession) Publish(topic string, qos byte, payload []byte) error {
	s.mu.Lock()
	if s.PublishError != nil {
		err := s.PublishError
		s.mu.Unlock()
		return err
	}
	if s.lost || s.closed {
		s.mu.Unlock()
		return fault.Network(fault.Server, "publish "+topic, errSessionLost)
	}
	s.published = append(s.published, Published{Topic: topic, QoS: qos, Payload: append([]byte(nil), payload...)})
	s.mu.Unlock()

	s.broker.Inject(topic, payload)
	return nil
}

// Subscribe registers interest in topic.
func (s *FakeSession) Subscribe(topic string, qos byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost || s.closed {
		return fault.Network(fault.Server, "subscribe "+topic, errSessionLost)
	}
	s.subs[topic] = qos
	return nil
}

// Next pops one delivered message.
func (s *FakeSession) Next() (Inbound, bool, error) {
	if msg, ok := s.queue.pop(); ok {
		return msg, true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost {
		return Inbound{}, false, fault.Network(fault.Server, "receive", errSessionLost)
	}
	return Inbound{}, false, nil
}

// Close marks the session closed. A closed session receives nothing.
func (s *FakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *FakeSession) deliver(topic string, payload []byte) {
	s.mu.Lock()
	_, ok := s.subs[topic]
	live := !s.lost && !s.closed
	s.mu.Unlock()
	if ok && live {
		s.queue.push(Inbound{Topic: topic, Payload: append([]byte(nil), payload...)})
	}
}

// Published returns every message published through s.
func (s *FakeSession) Published() []Published {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Published(nil), s.published...)
}

// Subscriptions returns the subscribed topics and their QoS.
func (s *FakeSession) Subscriptions() map[string]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]byte, len(s.subs))
	for k, v := range s.subs {
		out[k] = v
	}
	return out
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ Session = (*FakeSession)(nil)
