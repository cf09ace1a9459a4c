package glicko2

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoConvergence = errors.New("volatility solve did not converge")
	ErrInvalidEntry  = errors.New("invalid rating entry")
)
