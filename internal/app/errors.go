package service

import "errors"

// Sentinel error kinds for the engine.
var (
	// ErrOutOfOrder marks a game that ended before one already rated.
	ErrOutOfOrder = errors.New("game out of end time order")
	// ErrNotReady marks a service missing a required collaborator.
	ErrNotReady = errors.New("service not configured")
)
