package scanauth

import "errors"

// ErrDenied is returned when a configured store secret does not match the
// presented one.
var ErrDenied = errors.New("scan_denied")
