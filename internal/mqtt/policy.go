package mqtt

import "time"

// DefaultSchedule is the back-off schedule. Iterations are consumed in
// pairs: iteration i waits Schedule[i/2], even iterations use the primary
// wifi credentials and odd ones the backup.
var DefaultSchedule = []time.Duration{
	0, 0, 0,
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
	180 * time.Minute,
	180 * time.Minute,
	180 * time.Minute,
}

// DefaultSuccess is how long a connection must survive before the next
// failure starts the schedule over.
const DefaultSuccess = 5 * time.Minute

// Policy is the reconnect back-off as data.
type Policy struct {
	Schedule []time.Duration
	Success  time.Duration
}

// DefaultPolicy returns the stock schedule and success window.
func DefaultPolicy() Policy {
	return Policy{
		Schedule: append([]time.Duration(nil), DefaultSchedule...),
		Success:  DefaultSuccess,
	}
}

// Wait returns the delay before reconnect attempt iteration. ok is false
// once the schedule is exhausted.
func (p Policy) Wait(iteration int) (wait time.Duration, ok bool) {
	i := iteration / 2
	if iteration < 0 || i >= len(p.Schedule) {
		return 0, false
	}
	return p.Schedule[i], true
}

// Next returns the iteration that follows a failure. sinceLastFail is the
// time since the previous failure. The wait charged against it is the one
// of the current (pre-failure) iteration, so a connection counts as
// successful only if it outlived that wait by more than Success.
func (p Policy) Next(iteration int, sinceLastFail time.Duration) int {
	prev, _ := p.Wait(iteration)
	if sinceLastFail-prev <= p.Success {
		return iteration + 1
	}
	return 0
}

// UseBackup reports whether iteration should try the backup credentials.
func UseBackup(iteration int) bool {
	return iteration%2 == 1
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
