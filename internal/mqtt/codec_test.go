package mqtt

import (
	"errors"
	"testing"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/logic"
)

func TestNewTopicsIsOrderIndependent(t *testing.T) {
	a := NewTopics("alice", "bob")
	b := NewTopics("bob", "alice")

	if a.Room != "alice-bob" || b.Room != "alice-bob" {
		t.Fatalf("rooms: %q %q", a.Room, b.Room)
	}
	if a.Own != "alice-bob/alice" || a.Peer != "alice-bob/bob" {
		t.Errorf("alice topics: own=%q peer=%q", a.Own, a.Peer)
	}
	if a.Peer != b.Own || b.Peer != a.Own {
		t.Error("one device's peer topic must be the other's own topic")
	}
	if a.Control != "alice/control" {
		t.Errorf("control: %q", a.Control)
	}
	if a.Ping != "alice-bob/alice-ping" {
		t.Errorf("ping: %q", a.Ping)
	}
}

func TestSubscriptionsQoS(t *testing.T) {
	subs := NewTopics("alice", "bob").Subscriptions()
	want := map[string]byte{
		"alice-bob/alice":      0,
		"alice/control":        1,
		"alice-bob/alice-ping": 1,
	}
	if len(subs) != len(want) {
		t.Fatalf("got %d subscriptions, want %d", len(subs), len(want))
	}
	for _, s := range subs {
		if q, ok := want[s.Topic]; !ok || q != s.QoS {
			t.Errorf("unexpected subscription %+v", s)
		}
	}
}

func TestEncodeState(t *testing.T) {
	tests := []struct {
		state logic.State
		c     color.Color
		want  string
	}{
		{logic.StateActive, color.RGB(255, 50, 0), "active:(255, 50, 0)"},
		{logic.StateInactive, color.Off, "inactive:(0, 0, 0)"},
		{logic.StateHolding, color.RGB(1, 2, 3), "holding:(1, 2, 3)"},
		{logic.StateSleep, color.RGB(0, 0, 255), "sleep:(0, 0, 255)"},
	}
	for _, tt := range tests {
		if got := string(EncodeState(tt.state, tt.c)); got != tt.want {
			t.Errorf("EncodeState(%s, %v) = %q, want %q", tt.state, tt.c, got, tt.want)
		}
	}
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		body string
		want PeerUpdate
	}{
		{"active:(255, 50, 0)", PeerUpdate{logic.StateActive, color.RGB(255, 50, 0)}},
		{"sleep:(1,2,3)", PeerUpdate{logic.StateSleep, color.RGB(1, 2, 3)}},
		{"holding:( 0 , 9 , 10 )", PeerUpdate{logic.StateHolding, color.RGB(0, 9, 10)}},
		{"inactive:(0, 0, 0)", PeerUpdate{logic.StateInactive, color.Off}},
	}
	for _, tt := range tests {
		got, err := DecodeState(tt.body)
		if err != nil {
			t.Errorf("DecodeState(%q): unexpected error %v", tt.body, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeState(%q) = %+v, want %+v", tt.body, got, tt.want)
		}
	}
}

func TestDecodeStateMalformed(t *testing.T) {
	bodies := []string{
		"active",
		"dancing:(1, 2, 3)",
		"active:(1, 2)",
		"active:(256, 0, 0)",
		"active:(-1, 0, 0)",
		"active:(a, b, c)",
		"",
	}
	for _, b := range bodies {
		if _, err := DecodeState(b); !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeState(%q): got %v, want ErrMalformed", b, err)
		}
	}
}

func TestStateRoundTripThroughWire(t *testing.T) {
	c := color.RGB(12, 200, 7)
	got, err := DecodeState(string(EncodeState(logic.StateActive, c)))
	if err != nil {
		t.Fatal(err)
	}
	if got.State != logic.StateActive || got.Color != c {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeControl(t *testing.T) {
	tests := []struct {
		body string
		want Message
	}{
		{"reboot", RebootRequest{}},
		{"active_color:255,0,0", ConfigUpdate{Setting: "active_color", Value: "255,0,0"}},
		{"server_addr:tcp://broker:1883", ConfigUpdate{Setting: "server_addr", Value: "tcp://broker:1883"}},
		{"sleep_duration:default", ConfigUpdate{Setting: "sleep_duration", Value: "default"}},
	}
	for _, tt := range tests {
		got, err := DecodeControl(tt.body)
		if err != nil {
			t.Errorf("DecodeControl(%q): %v", tt.body, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeControl(%q) = %#v, want %#v", tt.body, got, tt.want)
		}
	}

	for _, bad := range []string{"", "nonsense", ":value"} {
		if _, err := DecodeControl(bad); !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeControl(%q): got %v, want ErrMalformed", bad, err)
		}
	}
}

func TestEncodeControl(t *testing.T) {
	if got := string(EncodeControl("", "")); got != "reboot" {
		t.Errorf("reboot: got %q", got)
	}
	if got := string(EncodeControl("name", "carol")); got != "name:carol" {
		t.Errorf("update: got %q", got)
	}
}
