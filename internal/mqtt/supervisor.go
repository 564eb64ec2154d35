package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/logic"
	"github.com/sweeney/friendship-lamp/internal/tick"
)

// ConnState is the supervisor's view of the link.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Credentials are one set of wifi credentials.
type Credentials struct {
	SSID     string
	Password string
}

// WifiAttacher joins a wireless network. Failures should be NetworkFaults
// with code LocalNetwork.
type WifiAttacher interface {
	Attach(ctx context.Context, creds Credentials) error
}

// InternetChecker verifies general internet reachability. Failures should
// be NetworkFaults with code Internet.
type InternetChecker interface {
	Check(ctx context.Context) error
}

// Notifier receives connection lifecycle events. It never influences
// control flow.
type Notifier interface {
	Connecting()
	Connected()
	ConnectionFault(code fault.Code, wait time.Duration)
}

// SupervisorConfig holds the connection settings.
type SupervisorConfig struct {
	Primary          Credentials
	Backup           Credentials // empty SSID means none
	CheckInternet    bool
	PingInterval     int // ping every N CheckMsg calls
	DroppedPingLimit int // pings without a pong before the link is declared dead
	Policy           Policy
}

// Deps are the supervisor's collaborators. Wifi and Internet may be nil
// when the host manages its own network.
type Deps struct {
	Dial     Dialer
	Wifi     WifiAttacher
	Internet InternetChecker
	Notifier Notifier
	Clock    tick.Clock
}

var (
	errNoBackup    = errors.New("no backup wifi configured")
	errPongTimeout = errors.New("too many pings dropped")
)

// Supervisor wraps a Link with the reconnect policy and ping watchdog.
// Its methods block while waiting out back-off, which stalls the whole
// device by design of the single loop.
type Supervisor struct {
	cfg  SupervisorConfig
	link *Link
	deps Deps

	state     ConnState
	iteration int
	lastFail  time.Time
	sincePong int
	checks    int
	sessions  int
}

// NewSupervisor creates a disconnected supervisor.
func NewSupervisor(cfg SupervisorConfig, link *Link, deps Deps) *Supervisor {
	if cfg.Policy.Schedule == nil {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 1
	}
	if deps.Clock == nil {
		deps.Clock = tick.SystemClock{}
	}
	if deps.Dial == nil {
		deps.Dial = DialPaho
	}
	return &Supervisor{
		cfg:      cfg,
		link:     link,
		deps:     deps,
		lastFail: deps.Clock.Now(),
	}
}

// State returns the current connection state.
func (s *Supervisor) State() ConnState { return s.state }

// Iteration returns the reconnect iteration.
func (s *Supervisor) Iteration() int { return s.iteration }

// Sessions counts the broker sessions opened so far. A change tells the
// caller the link was re-established and the peer may have seen our will.
func (s *Supervisor) Sessions() int { return s.sessions }

// SincePong returns the number of pings sent since the last pong.
func (s *Supervisor) SincePong() int { return s.sincePong }

// Start makes the boot-time connection: primary credentials, then one
// attempt with the backup. A second failure is returned to the caller so
// misconfiguration shows up immediately rather than after a back-off.
func (s *Supervisor) Start(ctx context.Context) error {
	err := s.connect(ctx)
	if err == nil || !fault.IsNetwork(err) {
		return err
	}
	slog.Warn("mqtt: boot connect failed", "error", err)
	if ferr := s.fail(ctx, err); ferr != nil {
		return ferr
	}
	return s.connect(ctx)
}

// Close drops the session.
func (s *Supervisor) Close() {
	s.link.Close()
	s.state = Disconnected
}

// CheckMsg drains at most one message and, every PingInterval calls, sends
// a ping. It returns nil when nothing is pending.
func (s *Supervisor) CheckMsg(ctx context.Context) (Message, error) {
	var msg Message
	err := s.retry(ctx, "check", func() error {
		m, pong, err := s.link.Drain()
		if err != nil {
			return err
		}
		if pong {
			s.sincePong = 0
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.checks%s.cfg.PingInterval == 0 {
		if err := s.Ping(ctx); err != nil {
			return nil, err
		}
	}
	s.checks++
	return msg, nil
}

// Ping sends a keepalive. Exceeding the dropped-ping limit is handled like
// any transport fault.
func (s *Supervisor) Ping(ctx context.Context) error {
	return s.retry(ctx, "ping", func() error {
		if s.sincePong > s.cfg.DroppedPingLimit {
			s.sincePong = 0
			return fault.Network(fault.Unspecified, "ping", errPongTimeout)
		}
		s.sincePong++
		return s.link.Ping()
	})
}

// PublishState sends our state to the peer, reconnecting as needed.
func (s *Supervisor) PublishState(ctx context.Context, state logic.State, c color.Color) error {
	return s.retry(ctx, "publish", func() error {
		return s.link.PublishState(state, c)
	})
}

// retry runs op until it succeeds, reconnecting after every NetworkFault.
// It gives up with the fault once the policy is exhausted, and returns any
// other error unchanged.
func (s *Supervisor) retry(ctx context.Context, name string, op func() error) error {
	reconnect := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if reconnect {
			if err := s.connect(ctx); err != nil {
				if !fault.IsNetwork(err) {
					return err
				}
				if ferr := s.fail(ctx, err); ferr != nil {
					return ferr
				}
				continue
			}
			reconnect = false
		}

		err := op()
		if err == nil {
			return nil
		}
		if !fault.IsNetwork(err) {
			return err
		}
		slog.Warn("mqtt: operation failed", "op", name, "error", err)
		if ferr := s.fail(ctx, err); ferr != nil {
			return ferr
		}
		reconnect = true
	}
}

// fail records a failure, advances or resets the iteration and waits out
// the back-off. It returns err itself once the schedule is exhausted.
func (s *Supervisor) fail(ctx context.Context, err error) error {
	now := s.deps.Clock.Now()
	s.iteration = s.cfg.Policy.Next(s.iteration, now.Sub(s.lastFail))
	s.lastFail = now
	s.state = Disconnected
	s.link.Close()

	wait, ok := s.cfg.Policy.Wait(s.iteration)
	if !ok {
		slog.Error("mqtt: reconnect schedule exhausted, restart to retry", "iteration", s.iteration, "error", err)
		return err
	}
	if wait > 0 {
		slog.Warn("mqtt: reconnecting after back-off", "iteration", s.iteration, "wait", wait, "code", fault.CodeOf(err))
		s.notify(func(n Notifier) { n.ConnectionFault(fault.CodeOf(err), wait) })
		if serr := s.deps.Clock.Sleep(ctx, wait); serr != nil {
			return serr
		}
	} else {
		slog.Info("mqtt: reconnecting", "iteration", s.iteration)
	}
	return nil
}

// connect runs wifi, the optional internet check and the broker session.
func (s *Supervisor) connect(ctx context.Context) error {
	s.state = Connecting
	wait, _ := s.cfg.Policy.Wait(s.iteration)
	announce := wait > 0
	if announce {
		s.notify(func(n Notifier) { n.Connecting() })
	}

	creds := s.cfg.Primary
	if UseBackup(s.iteration) {
		if s.cfg.Backup.SSID == "" {
			return fault.Network(fault.LocalNetwork, "wifi", errNoBackup)
		}
		creds = s.cfg.Backup
		slog.Info("mqtt: trying backup wifi", "ssid", creds.SSID)
	}
	if s.deps.Wifi != nil {
		if err := s.deps.Wifi.Attach(ctx, creds); err != nil {
			return tagged(fault.LocalNetwork, "wifi", err)
		}
	}

	if s.cfg.CheckInternet && s.deps.Internet != nil {
		if err := s.deps.Internet.Check(ctx); err != nil {
			return tagged(fault.Internet, "internet", err)
		}
	}

	if err := s.link.Open(s.deps.Dial); err != nil {
		return err
	}
	s.state = Connected
	s.sincePong = 0
	s.sessions++
	if announce {
		s.notify(func(n Notifier) { n.Connected() })
	}
	return nil
}

func (s *Supervisor) notify(f func(Notifier)) {
	if s.deps.Notifier != nil {
		f(s.deps.Notifier)
	}
}

func tagged(code fault.Code, op string, err error) error {
	if fault.IsNetwork(err) || fault.IsSetup(err) {
		return err
	}
	return fault.Network(code, op, err)
}
