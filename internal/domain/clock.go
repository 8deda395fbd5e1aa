package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze run ids via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for run ids. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// RunID returns the UTC timestamp that names a pipeline run directory,
// e.g. "20240426_151000".
func RunID() string {
	return clock.Now().UTC().Format("20060102_150405")
}
