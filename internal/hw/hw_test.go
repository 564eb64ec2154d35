package hw

import (
	"errors"
	"testing"

	"github.com/sweeney/friendship-lamp/internal/color"
)

func TestMCP3008Request(t *testing.T) {
	got := mcp3008Request(3)
	want := []byte{1, 0xB0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("request: got % x, want % x", got, want)
		}
	}
}

func TestMCP3008Value(t *testing.T) {
	tests := []struct {
		resp []byte
		want int
	}{
		{[]byte{0, 0, 0}, 0},
		{[]byte{0, 0x03, 0xFF}, 1023 << 6},
		{[]byte{0, 0xFE, 0x10}, (2<<8 + 0x10) << 6}, // upper bits of byte 1 are noise
	}
	for _, tt := range tests {
		if got := mcp3008Value(tt.resp); got != tt.want {
			t.Errorf("mcp3008Value(% x) = %d, want %d", tt.resp, got, tt.want)
		}
	}
}

func TestWS2801Frame(t *testing.T) {
	px := []color.Color{color.RGB(255, 100, 10), color.RGB(0, 200, 255)}
	got := ws2801Frame(px, [3]float64{1, 0.5, 2})
	want := []byte{255, 50, 20, 0, 100, 255}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFakeSensorRead(t *testing.T) {
	f := NewFakeSensor(10, 20)

	for i, want := range []int{10, 20, 20} {
		got, err := f.ReadSample()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %d, want %d", i, got, want)
		}
	}

	f.Push(30, 40)
	for i, want := range []int{30, 40, 40} {
		if got, _ := f.ReadSample(); got != want {
			t.Errorf("after push, read %d: got %d, want %d", i, got, want)
		}
	}

	f.Reset()
	if got, _ := f.ReadSample(); got != 10 {
		t.Errorf("after reset: got %d, want 10", got)
	}
}

func TestFakeSensorErrors(t *testing.T) {
	if _, err := NewFakeSensor().ReadSample(); err == nil {
		t.Error("expected error with no samples")
	}

	f := NewFakeSensor(1)
	f.ReadError = errors.New("spi fault")
	if _, err := f.ReadSample(); err == nil {
		t.Error("expected scripted error")
	}
}

func TestFakeSensorResetAndClose(t *testing.T) {
	f := NewFakeSensor(1, 2)
	f.ReadSample()
	f.Close()
	if !f.Closed {
		t.Error("expected Closed=true")
	}
	f.Reset()
	if got, _ := f.ReadSample(); got != 1 {
		t.Errorf("after reset: got %d, want 1", got)
	}
	if f.Closed {
		t.Error("expected Closed=false after reset")
	}
}

func TestFakeDisplay(t *testing.T) {
	d := NewFakeDisplay(4)
	red := color.RGB(255, 0, 0)

	d.SetAll(red)
	if d.Current(0) != color.Off {
		t.Error("SetAll must not show")
	}
	if err := d.Show(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < d.Len(); i++ {
		if d.Current(i) != red {
			t.Errorf("pixel %d: got %v", i, d.Current(i))
		}
	}
	if d.Current(99) != color.Off {
		t.Error("out of range pixel should read as off")
	}
	if d.Last() != red || len(d.Frames) != 1 {
		t.Errorf("frames: %v", d.Frames)
	}

	d.ShowError = errors.New("broken")
	if err := d.Show(); err == nil {
		t.Error("expected show error")
	}
}

func TestSimDisplay(t *testing.T) {
	d := NewSimDisplay(2)
	d.SetAll(color.RGB(9, 8, 7))
	if d.Current(1) != color.Off {
		t.Fatalf("pixel visible before Show")
	}
	if err := d.Show(); err != nil {
		t.Fatal(err)
	}
	if got := d.Current(1); got != color.RGB(9, 8, 7) {
		t.Errorf("after Show: got %v", got)
	}
}

func TestSimSensorAndLight(t *testing.T) {
	v, err := SimSensor{Level: 512}.ReadSample()
	if err != nil || v != 512 {
		t.Errorf("sim sensor: got %d, %v", v, err)
	}

	var l SimLight
	if err := l.Set(true); err != nil {
		t.Fatal(err)
	}
	if !l.on {
		t.Errorf("sim light should be on")
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}
