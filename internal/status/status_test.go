package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/logic"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	tr := NewTracker(testStart, Config{Name: "alice", Friend: "bob", Broker: "tcp://localhost:1883", HTTPAddr: ":8080"})
	tr.now = func() time.Time { return testStart.Add(90 * time.Second) }
	return tr
}

func TestNewTracker(t *testing.T) {
	tr := newTestTracker()
	snap := tr.Snapshot()

	if !snap.StartTime.Equal(testStart) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, testStart)
	}
	if snap.Phase != PhaseBooting {
		t.Errorf("Phase: got %q, want booting", snap.Phase)
	}
	if snap.Local != logic.StateInactive || snap.Peer != logic.StateInactive {
		t.Errorf("states: got %q/%q, want inactive", snap.Local, snap.Peer)
	}
	if snap.RebootPending {
		t.Error("expected RebootPending=false initially")
	}
}

func TestSetLampAndSnapshot(t *testing.T) {
	tr := newTestTracker()
	tr.SetLamp(logic.StateActive, logic.StateSleep, color.RGB(0, 0, 255))

	snap := tr.Snapshot()
	if snap.Local != logic.StateActive {
		t.Errorf("Local: got %q", snap.Local)
	}
	if snap.Peer != logic.StateSleep {
		t.Errorf("Peer: got %q", snap.Peer)
	}
	if snap.PeerColor != color.RGB(0, 0, 255) {
		t.Errorf("PeerColor: got %v", snap.PeerColor)
	}
}

func TestNotifierPhases(t *testing.T) {
	tr := newTestTracker()

	tr.Connecting()
	if got := tr.Snapshot().Phase; got != PhaseConnecting {
		t.Errorf("after Connecting: %q", got)
	}

	tr.ConnectionFault(fault.Internet, 5*time.Minute)
	snap := tr.Snapshot()
	if snap.Phase != PhaseConnectionFault || snap.FaultCode != fault.Internet {
		t.Errorf("after ConnectionFault: %q %v", snap.Phase, snap.FaultCode)
	}
	if want := testStart.Add(90*time.Second + 5*time.Minute); !snap.RetryAt.Equal(want) {
		t.Errorf("RetryAt: got %v, want %v", snap.RetryAt, want)
	}

	tr.Connected()
	snap = tr.Snapshot()
	if snap.Phase != PhaseConnected || snap.FaultCode != 0 || !snap.RetryAt.IsZero() {
		t.Errorf("after Connected: %+v", snap)
	}

	tr.SetupFault(errors.New("bad name"))
	if snap := tr.Snapshot(); snap.Phase != PhaseSetupFault || snap.FaultMessage != "bad name" {
		t.Errorf("after SetupFault: %q %q", snap.Phase, snap.FaultMessage)
	}

	tr.OtherFault(errors.New("boom"))
	if got := tr.Snapshot().Phase; got != PhaseOtherFault {
		t.Errorf("after OtherFault: %q", got)
	}
}

type countingNotifier struct{ calls []string }

func (c *countingNotifier) Booting()                                  { c.calls = append(c.calls, "booting") }
func (c *countingNotifier) Connecting()                               { c.calls = append(c.calls, "connecting") }
func (c *countingNotifier) Connected()                                { c.calls = append(c.calls, "connected") }
func (c *countingNotifier) SetupFault(error)                          { c.calls = append(c.calls, "setup") }
func (c *countingNotifier) ConnectionFault(fault.Code, time.Duration) { c.calls = append(c.calls, "conn") }
func (c *countingNotifier) OtherFault(error)                          { c.calls = append(c.calls, "other") }

func TestFanout(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	f := Fanout{a, b}

	f.Booting()
	f.Connecting()
	f.Connected()
	f.SetupFault(nil)
	f.ConnectionFault(fault.Server, time.Minute)
	f.OtherFault(nil)

	want := []string{"booting", "connecting", "connected", "setup", "conn", "other"}
	for _, n := range []*countingNotifier{a, b} {
		if len(n.calls) != len(want) {
			t.Fatalf("calls: got %v, want %v", n.calls, want)
		}
		for i := range want {
			if n.calls[i] != want[i] {
				t.Errorf("call %d: got %q, want %q", i, n.calls[i], want[i])
			}
		}
	}
}

func TestSetRebootPending(t *testing.T) {
	tr := newTestTracker()
	tr.SetRebootPending("config file changed")

	snap := tr.Snapshot()
	if !snap.RebootPending || snap.RebootReason != "config file changed" {
		t.Errorf("got %v %q", snap.RebootPending, snap.RebootReason)
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := newTestTracker().Snapshot()
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := newTestTracker()
	tr.SetLamp(logic.StateActive, logic.StateInactive, color.Off)
	snap := tr.Snapshot()

	tr.SetLamp(logic.StateSleep, logic.StateSleep, color.Off)
	if snap.Local != logic.StateActive {
		t.Error("snapshot should not change after tracker update")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := newTestTracker()
	tr.SetLamp(logic.StateHolding, logic.StateActive, color.RGB(255, 50, 0))
	tr.Connected()

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := sj.Status
	if s.Phase != "connected" {
		t.Errorf("phase: got %q", s.Phase)
	}
	if s.Local != "holding" {
		t.Errorf("local: got %q", s.Local)
	}
	if s.Peer.Name != "bob" || s.Peer.State != "active" || s.Peer.Color != [3]int{255, 50, 0} {
		t.Errorf("peer: got %+v", s.Peer)
	}
	if s.Fault != nil {
		t.Errorf("fault should be omitted when connected, got %+v", s.Fault)
	}
	if s.UptimeSeconds != 90 {
		t.Errorf("uptime: got %d, want 90", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("start_time: got %q", s.StartTime)
	}
	if s.Config.Broker != "tcp://localhost:1883" || s.Config.Name != "alice" {
		t.Errorf("config: got %+v", s.Config)
	}
}

func TestFormatJSONConnectionFault(t *testing.T) {
	tr := newTestTracker()
	tr.ConnectionFault(fault.LocalNetwork, time.Minute)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	f := sj.Status.Fault
	if f == nil {
		t.Fatal("expected fault")
	}
	if f.Code != 2 || f.Kind != "local-network" {
		t.Errorf("fault: got %+v", f)
	}
	if f.RetryAt != "2026-01-01T00:02:30Z" {
		t.Errorf("retry_at: got %q", f.RetryAt)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetLamp(logic.StateActive, logic.StateInactive, color.Off)
			tr.ConnectionFault(fault.Server, time.Second)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()
	wg.Wait()
}
