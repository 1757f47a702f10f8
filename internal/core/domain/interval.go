package domain

import "time"

type IntervalGate struct {
	Interval       time.Duration
	StartTimestamp int64
}

func NewIntervalGate(interval time.Duration, now time.Time) IntervalGate {
	return IntervalGate{
		Interval:       interval,
		StartTimestamp: now.Unix(),
	}
}

func (g IntervalGate) HasElapsed(now time.Time) bool {
	return now.Sub(time.Unix(g.StartTimestamp, 0)) >= g.Interval
}

func (g *IntervalGate) Restart(now time.Time) {
	g.StartTimestamp = now.Unix()
}

// Remaining returns how long until the gate opens, zero if already elapsed.
func (g IntervalGate) Remaining(now time.Time) time.Duration {
	left := g.Interval - now.Sub(time.Unix(g.StartTimestamp, 0))
	if left < 0 {
		return 0
	}
	return left
}
