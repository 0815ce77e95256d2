// Package playback holds the pure playback clock model shared by the
// server broadcaster and client-side correctors. Both sides must project
// and classify identically, so nothing here touches clocks, goroutines
// or I/O.
package playback

import "time"

// Clock is the authoritative playback tuple for a room. Position is the
// playback offset in seconds at UpdatedAt; while playing it advances at
// Rate and is only meaningful combined with UpdatedAt.
type Clock struct {
	Position  float64   `json:"position"`
	IsPlaying bool      `json:"is_playing"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewClock returns a clock at rest: position 0, paused, rate 1.
func NewClock(now time.Time) Clock {
	return Clock{
		Position:  0,
		IsPlaying: false,
		Rate:      1,
		UpdatedAt: now,
	}
}

// Project returns the playback position at the given instant.
func Project(c Clock, now time.Time) float64 {
	if !c.IsPlaying {
		return c.Position
	}

	return c.Position + now.Sub(c.UpdatedAt).Seconds()*c.Rate
}

type CorrectionKind string

const (
	// InSync: keep playing at the authoritative rate.
	InSync CorrectionKind = "in_sync"
	// Gradual: apply a bounded temporary rate offset to converge.
	Gradual CorrectionKind = "gradual"
	// HardSeek: jump straight to the projected position.
	HardSeek CorrectionKind = "hard_seek"
)

type Direction string

const (
	SpeedUp  Direction = "speed_up"
	SlowDown Direction = "slow_down"
)

// Correction tells a client how to converge on the projected position.
// Rate is the playback rate to apply right now; for Gradual it already
// includes the nudge on top of the authoritative rate.
type Correction struct {
	Kind      CorrectionKind
	Direction Direction
	Rate      float64
	SeekTo    float64
}

// Thresholds are policy constants, not structure. They trade visible
// stutter against convergence speed, so they are configuration with
// defaults rather than hardcoded values.
type Thresholds struct {
	// InSyncWithin is the drift, in seconds, below which no correction
	// is applied.
	InSyncWithin float64 `json:"in_sync_within"`
	// HardSeekAt is the drift, in seconds, at or above which the client
	// jumps to the projected position.
	HardSeekAt float64 `json:"hard_seek_at"`
	// RateNudge is the fractional rate offset used for gradual
	// correction, e.g. 0.05 for a 5% speed-up or slow-down.
	RateNudge float64 `json:"rate_nudge"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		InSyncWithin: 0.1,
		HardSeekAt:   0.3,
		RateNudge:    0.05,
	}
}

// ClassifyDrift compares a locally observed position against the
// projected authoritative position and picks a correction strategy.
// authoritativeRate is the rate the room is actually playing at.
//
// Boundaries are half-open: drift below InSyncWithin is in sync, drift
// at or above HardSeekAt is a hard seek, everything between is gradual.
func ClassifyDrift(observed, projected, authoritativeRate float64, t Thresholds) Correction {
	drift := projected - observed
	abs := drift
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs < t.InSyncWithin:
		return Correction{
			Kind: InSync,
			Rate: authoritativeRate,
		}
	case abs < t.HardSeekAt:
		c := Correction{
			Kind: Gradual,
		}
		if drift > 0 {
			// observer is behind the projection
			c.Direction = SpeedUp
			c.Rate = authoritativeRate * (1 + t.RateNudge)
		} else {
			c.Direction = SlowDown
			c.Rate = authoritativeRate * (1 - t.RateNudge)
		}
		return c
	default:
		return Correction{
			Kind:   HardSeek,
			Rate:   authoritativeRate,
			SeekTo: projected,
		}
	}
}
