package mqtt

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/sweeney/friendship-lamp/internal/fault"
)

var errTimeout = errors.New("timeout")

// PahoSession is a Session backed by the Eclipse Paho client.
type PahoSession struct {
	client  paho.Client
	timeout time.Duration
	queue   *inboundQueue

	mu   sync.Mutex
	lost error
}

// DialPaho connects to the broker described by opts. Reconnection is left
// to the Supervisor, so the client's own auto-reconnect is disabled.
// Rejected credentials are a SetupFault; everything else is a NetworkFault.
func DialPaho(opts SessionOptions) (Session, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &PahoSession{
		timeout: timeout,
		queue:   newInboundQueue(opts.QueueLimit),
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(timeout).
		SetWriteTimeout(timeout).
		SetDefaultPublishHandler(s.onMessage).
		SetConnectionLostHandler(s.onLost)
	if opts.Will.Topic != "" {
		co.SetBinaryWill(opts.Will.Topic, opts.Will.Payload, QoSState, false)
	}

	client := paho.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		// Abort the attempt so a late CONNACK cannot leave a second client
		// holding our client ID.
		client.Disconnect(0)
		return nil, fault.Network(fault.Server, "connect", errTimeout)
	}
	if err := token.Error(); err != nil {
		if errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) || errors.Is(err, packets.ErrorRefusedNotAuthorised) {
			return nil, fault.Setupf("server_pass", "broker rejected credentials: %v", err)
		}
		return nil, fault.Network(fault.Server, "connect", err)
	}
	s.client = client
	return s, nil
}

func (s *PahoSession) onMessage(_ paho.Client, m paho.Message) {
	slog.Debug("mqtt: inbound", "topic", m.Topic(), "payload", string(m.Payload()))
	s.queue.push(Inbound{Topic: m.Topic(), Payload: m.Payload()})
}

func (s *PahoSession) onLost(_ paho.Client, err error) {
	slog.Warn("mqtt: connection lost", "error", err)
	s.mu.Lock()
	s.lost = err
	s.mu.Unlock()
}

// Publish sends payload and waits for the client to hand it off.
func (s *PahoSession) Publish(topic string, qos byte, payload []byte) error {
	token := s.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(s.timeout) {
		return fault.Network(fault.Server, "publish "+topic, errTimeout)
	}
	if err := token.Error(); err != nil {
		return fault.Network(fault.Server, "publish "+topic, err)
	}
	return nil
}

// Subscribe routes topic to the inbound queue.
func (s *PahoSession) Subscribe(topic string, qos byte) error {
	token := s.client.Subscribe(topic, qos, nil)
	if !token.WaitTimeout(s.timeout) {
		return fault.Network(fault.Server, "subscribe "+topic, errTimeout)
	}
	if err := token.Error(); err != nil {
		return fault.Network(fault.Server, "subscribe "+topic, err)
	}
	return nil
}

// Next pops one queued message. Messages that arrived before a connection
// loss are still delivered before the loss is reported.
func (s *PahoSession) Next() (Inbound, bool, error) {
	if msg, ok := s.queue.pop(); ok {
		return msg, true, nil
	}
	s.mu.Lock()
	lost := s.lost
	s.mu.Unlock()
	if lost != nil {
		return Inbound{}, false, fault.Network(fault.Server, "receive", lost)
	}
	return Inbound{}, false, nil
}

// Close disconnects from the broker.
func (s *PahoSession) Close() error {
	if s.client == nil {
		return nil
	}
	s.client.Disconnect(uint(s.timeout / time.Millisecond))
	return nil
}

var _ Session = (*PahoSession)(nil)
