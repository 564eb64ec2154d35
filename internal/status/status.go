// Package status tracks what the lamp is doing for the HTTP status page and
// fans lifecycle notifications out to every indicator.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/logic"
)

// Notifier receives lifecycle events. Implementations are purely
// informational and must not block for long.
type Notifier interface {
	Booting()
	Connecting()
	Connected()
	SetupFault(err error)
	ConnectionFault(code fault.Code, wait time.Duration)
	OtherFault(err error)
}

// Fanout forwards every event to each notifier in order.
type Fanout []Notifier

func (f Fanout) Booting() {
	for _, n := range f {
		n.Booting()
	}
}

func (f Fanout) Connecting() {
	for _, n := range f {
		n.Connecting()
	}
}

func (f Fanout) Connected() {
	for _, n := range f {
		n.Connected()
	}
}

func (f Fanout) SetupFault(err error) {
	for _, n := range f {
		n.SetupFault(err)
	}
}

func (f Fanout) ConnectionFault(code fault.Code, wait time.Duration) {
	for _, n := range f {
		n.ConnectionFault(code, wait)
	}
}

func (f Fanout) OtherFault(err error) {
	for _, n := range f {
		n.OtherFault(err)
	}
}

// Phase is the lifecycle phase last reported.
type Phase string

const (
	PhaseBooting         Phase = "booting"
	PhaseConnecting      Phase = "connecting"
	PhaseConnected       Phase = "connected"
	PhaseSetupFault      Phase = "setup-fault"
	PhaseConnectionFault Phase = "connection-fault"
	PhaseOtherFault      Phase = "other-fault"
)

// Config contains daemon configuration for display.
type Config struct {
	Name       string
	Friend     string
	Broker     string
	HTTPAddr   string
	ConfigPath string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Local         logic.State
	Peer          logic.State
	PeerColor     color.Color
	Phase         Phase
	FaultCode     fault.Code
	FaultMessage  string
	RetryAt       time.Time
	RebootPending bool
	RebootReason  string
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. It is itself a
// Notifier so lifecycle events show up on the status page.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Local:     logic.StateInactive,
			Peer:      logic.StateInactive,
			Phase:     PhaseBooting,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetLamp records the local and peer state. Called by the coordinator
// whenever either changes.
func (t *Tracker) SetLamp(local, peer logic.State, peerColor color.Color) {
	t.mu.Lock()
	t.snap.Local = local
	t.snap.Peer = peer
	t.snap.PeerColor = peerColor
	t.mu.Unlock()
}

// SetRebootPending marks that a persisted change needs a reboot.
func (t *Tracker) SetRebootPending(reason string) {
	t.mu.Lock()
	t.snap.RebootPending = true
	t.snap.RebootReason = reason
	t.mu.Unlock()
}

func (t *Tracker) setPhase(p Phase, code fault.Code, err error, wait time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Phase = p
	t.snap.FaultCode = code
	t.snap.FaultMessage = ""
	if err != nil {
		t.snap.FaultMessage = err.Error()
	}
	t.snap.RetryAt = time.Time{}
	if wait > 0 {
		t.snap.RetryAt = t.now().Add(wait)
	}
}

func (t *Tracker) Booting()             { t.setPhase(PhaseBooting, 0, nil, 0) }
func (t *Tracker) Connecting()          { t.setPhase(PhaseConnecting, 0, nil, 0) }
func (t *Tracker) Connected()           { t.setPhase(PhaseConnected, 0, nil, 0) }
func (t *Tracker) SetupFault(err error) { t.setPhase(PhaseSetupFault, 0, err, 0) }
func (t *Tracker) OtherFault(err error) { t.setPhase(PhaseOtherFault, 0, err, 0) }

func (t *Tracker) ConnectionFault(code fault.Code, wait time.Duration) {
	t.setPhase(PhaseConnectionFault, code, nil, wait)
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
