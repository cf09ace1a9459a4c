package ranks

import "errors"

// Sentinel error kinds for this package.
var (
	ErrConfiguration = errors.New("invalid rank configuration")
	ErrUnknownSystem = errors.New("unknown rank system")
)
