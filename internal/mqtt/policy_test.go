package mqtt

import (
	"testing"
	"time"
)

func TestPolicyWaitPairsShareValue(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{
		0, 0, // primary, backup
		0, 0,
		0, 0,
		time.Minute, time.Minute,
		5 * time.Minute, 5 * time.Minute,
		15 * time.Minute, 15 * time.Minute,
	}
	for i, w := range want {
		got, ok := p.Wait(i)
		if !ok {
			t.Fatalf("iteration %d: schedule exhausted early", i)
		}
		if got != w {
			t.Errorf("iteration %d: wait %v, want %v", i, got, w)
		}
		if UseBackup(i) != (i%2 == 1) {
			t.Errorf("iteration %d: wrong credential choice", i)
		}
	}
}

func TestPolicyExhaustion(t *testing.T) {
	p := DefaultPolicy()
	last := 2*len(DefaultSchedule) - 1
	if _, ok := p.Wait(last); !ok {
		t.Errorf("iteration %d should still be in the schedule", last)
	}
	if _, ok := p.Wait(last + 1); ok {
		t.Errorf("iteration %d should be past the schedule", last+1)
	}
	if _, ok := p.Wait(-1); ok {
		t.Error("negative iteration should not be in the schedule")
	}
}

func TestPolicyNext(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name      string
		iteration int
		since     time.Duration
		want      int
	}{
		{"quick failure advances", 0, time.Minute, 1},
		{"boundary advances", 0, 5 * time.Minute, 1},
		{"long-lived connection resets", 0, 5*time.Minute + time.Second, 0},
		{"wait is not counted as uptime", 6, 5*time.Minute + 30*time.Second, 7},
		{"long-lived after wait resets", 6, 6*time.Minute + 30*time.Second, 0},
		{"reset from deep in schedule", 15, 4 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Next(tt.iteration, tt.since); got != tt.want {
				t.Errorf("Next(%d, %v) = %d, want %d", tt.iteration, tt.since, got, tt.want)
			}
		})
	}
}

func TestDefaultPolicyIsACopy(t *testing.T) {
	p := DefaultPolicy()
	p.Schedule[0] = time.Hour
	if DefaultSchedule[0] != 0 {
		t.Error("DefaultPolicy must not alias DefaultSchedule")
	}
}
