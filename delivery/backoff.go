package delivery

import "time"

// DefaultBackoff is the delay before retry n+1 after n failed rounds.
var DefaultBackoff = []time.Duration{
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	time.Hour,
}

// Backoff maps a failed round count to the delay before the next round.
type Backoff []time.Duration

// Delay returns the delay after the given number of attempts. Counts beyond
// the table reuse its last entry; a count below one uses the first.
func (b Backoff) Delay(attempts int) time.Duration {
	if len(b) == 0 {
		return 0
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b) {
		idx = len(b) - 1
	}
	return b[idx]
}

// Next returns the time of the next round.
func (b Backoff) Next(now time.Time, attempts int) time.Time {
	return now.Add(b.Delay(attempts))
}
