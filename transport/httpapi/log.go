package httpapi

import "github.com/decred/slog"

// log is this package's subsystem logger, disabled until cmd/noobcashd
// wires up the root logger (degeri-dcrlnd's log.go convention).
var log = slog.Disabled

// UseLogger sets the package-level logger used by httpapi.
func UseLogger(logger slog.Logger) {
	log = logger
}
