// Package mqtt keeps the lamp in sync with its paired device over an MQTT
// broker. Link speaks the wire protocol, Supervisor keeps the link alive
// across wifi and broker faults, and Session abstracts the broker client
// for testing.
package mqtt

import (
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// QoS levels used on the wire.
const (
	QoSState   byte = 0
	QoSControl byte = 1
	QoSPing    byte = 1
)

// Topics addresses one device inside its room.
type Topics struct {
	Room    string // both names, sorted, joined by "-"
	Own     string // peer publishes our updates here
	Peer    string // we publish the peer's updates here
	Control string
	Ping    string
}

// NewTopics derives the topic set for device name paired with friend. Both
// devices compute the same room whatever the argument order.
func NewTopics(name, friend string) Topics {
	names := []string{name, friend}
	slices.Sort(names)
	room := strings.Join(names, "-")
	return Topics{
		Room:    room,
		Own:     room + "/" + name,
		Peer:    room + "/" + friend,
		Control: name + "/control",
		Ping:    room + "/" + name + "-ping",
	}
}

// Subscription is a topic filter with its QoS.
type Subscription struct {
	Topic string
	QoS   byte
}

// Subscriptions lists everything a device subscribes to after connecting.
func (t Topics) Subscriptions() []Subscription {
	return []Subscription{
		{Topic: t.Own, QoS: QoSState},
		{Topic: t.Control, QoS: QoSControl},
		{Topic: t.Ping, QoS: QoSPing},
	}
}

// Inbound is a raw message received from the broker.
type Inbound struct {
	Topic   string
	Payload []byte
}

// Will is the last-will registration.
type Will struct {
	Topic   string
	Payload []byte
}

// SessionOptions configures a new broker session.
type SessionOptions struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Timeout    time.Duration
	Will       Will
	QueueLimit int
}

// Session is one broker connection. A Session is not reused after a fault;
// the link dials a fresh one on reconnect.
type Session interface {
	Publish(topic string, qos byte, payload []byte) error
	Subscribe(topic string, qos byte) error
	// Next pops one queued inbound message without blocking. It reports an
	// error once the connection has been lost and the queue is empty.
	Next() (Inbound, bool, error)
	Close() error
}

// Dialer opens a Session.
type Dialer func(opts SessionOptions) (Session, error)
