package mqtt

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/logic"
)

var errNotOpen = errors.New("link not open")

// LinkConfig identifies the device and its broker.
type LinkConfig struct {
	Name       string
	Friend     string
	Broker     string
	Username   string
	Password   string
	Timeout    float64 // seconds
	QueueLimit int
}

// Link is the peer protocol over one broker session. It does not retry;
// that is the Supervisor's job.
type Link struct {
	cfg     LinkConfig
	topics  Topics
	boot    string
	session Session
}

// NewLink prepares a link for the pair cfg.Name / cfg.Friend. Nothing is
// dialled until Open.
func NewLink(cfg LinkConfig) *Link {
	return &Link{
		cfg:    cfg,
		topics: NewTopics(cfg.Name, cfg.Friend),
		boot:   uuid.NewString(),
	}
}

// Topics returns the topic set in use.
func (l *Link) Topics() Topics {
	return l.topics
}

// BootID identifies this process in ping payloads.
func (l *Link) BootID() string {
	return l.boot
}

// Options builds the session options, including the last will that tells
// the peer we went inactive.
func (l *Link) Options() SessionOptions {
	user := l.cfg.Username
	if user == "" {
		user = l.cfg.Name
	}
	return SessionOptions{
		Broker:   l.cfg.Broker,
		ClientID: l.cfg.Name + "_lamp",
		Username: user,
		Password: l.cfg.Password,
		Timeout:  seconds(l.cfg.Timeout),
		Will: Will{
			Topic:   l.topics.Peer,
			Payload: EncodeState(logic.StateInactive, color.Off),
		},
		QueueLimit: l.cfg.QueueLimit,
	}
}

// Open replaces any existing session with a freshly dialled one and
// (re)issues every subscription.
func (l *Link) Open(dial Dialer) error {
	l.Close()

	opts := l.Options()
	s, err := dial(opts)
	if err != nil {
		return asNetwork("connect", err)
	}
	for _, sub := range l.topics.Subscriptions() {
		if err := s.Subscribe(sub.Topic, sub.QoS); err != nil {
			s.Close()
			return asNetwork("subscribe", err)
		}
	}
	l.session = s
	slog.Info("mqtt: session open", "broker", opts.Broker, "room", l.topics.Room, "boot", l.boot)
	return nil
}

// Close drops the current session, if any.
func (l *Link) Close() {
	if l.session != nil {
		l.session.Close()
		l.session = nil
	}
}

// PublishState tells the peer our state and colour, at most once.
func (l *Link) PublishState(state logic.State, c color.Color) error {
	if l.session == nil {
		return fault.Network(fault.Server, "publish", errNotOpen)
	}
	return asNetwork("publish", l.session.Publish(l.topics.Peer, QoSState, EncodeState(state, c)))
}

// Ping publishes on our own ping topic; the broker echoes it back to us.
func (l *Link) Ping() error {
	if l.session == nil {
		return fault.Network(fault.Server, "ping", errNotOpen)
	}
	return asNetwork("ping", l.session.Publish(l.topics.Ping, QoSState, []byte("ping "+l.boot)))
}

// Drain consumes at most one inbound message without blocking. A message on
// the ping topic is reported as pong and never decoded. Unknown topics and
// malformed bodies yield nothing.
func (l *Link) Drain() (msg Message, pong bool, err error) {
	if l.session == nil {
		return nil, false, fault.Network(fault.Server, "receive", errNotOpen)
	}
	in, ok, err := l.session.Next()
	if err != nil {
		return nil, false, asNetwork("receive", err)
	}
	if !ok {
		return nil, false, nil
	}

	switch in.Topic {
	case l.topics.Ping:
		return nil, true, nil
	case l.topics.Own:
		u, err := DecodeState(string(in.Payload))
		if err != nil {
			slog.Warn("mqtt: dropping peer update", "topic", in.Topic, "error", err)
			return nil, false, nil
		}
		return u, false, nil
	case l.topics.Control:
		m, err := DecodeControl(string(in.Payload))
		if err != nil {
			slog.Warn("mqtt: dropping control message", "topic", in.Topic, "error", err)
			return nil, false, nil
		}
		return m, false, nil
	default:
		slog.Debug("mqtt: ignoring message", "topic", in.Topic)
		return nil, false, nil
	}
}

// asNetwork tags transport errors that are not already classified.
func asNetwork(op string, err error) error {
	if err == nil || fault.IsNetwork(err) || fault.IsSetup(err) {
		return err
	}
	return fault.Network(fault.Server, op, err)
}
