package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("player not found")
	ErrInvalidLimit  = errors.New("invalid leaderboard limit")
	ErrNoSnapshot    = errors.New("no snapshot stored")
	ErrSnapshotWrite = errors.New("snapshot write failed")
)
