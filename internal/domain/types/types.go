// Package types contains common types used across the application
package types

import (
	"fmt"
	"strings"
)

// LiveThresholdSeconds separates live from correspondence games.
const LiveThresholdSeconds = 3600

// Speed is a time control class.
type Speed int

// Speed classes.
const (
	SpeedAny Speed = iota
	SpeedLive
	SpeedCorrespondence
)

// String implements fmt.Stringer.
func (s Speed) String() string {
	switch s {
	case SpeedLive:
		return "live"
	case SpeedCorrespondence:
		return "correspondence"
	default:
		return "any"
	}
}

// ParseSpeed maps a configuration value to a Speed.
// Accepts: "", any, live, corr/correspondence (case-insensitive).
func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return SpeedAny, nil
	case "live":
		return SpeedLive, nil
	case "corr", "correspondence":
		return SpeedCorrespondence, nil
	default:
		return SpeedAny, fmt.Errorf("unknown speed: %s", s)
	}
}

// ClassifySpeed returns the speed class of a game from its seconds per move.
// ok is false when the time per move is unknown.
func ClassifySpeed(timePerMove *float64) (speed Speed, ok bool) {
	if timePerMove == nil {
		return SpeedAny, false
	}
	if *timePerMove <= LiveThresholdSeconds {
		return SpeedLive, true
	}
	return SpeedCorrespondence, true
}
