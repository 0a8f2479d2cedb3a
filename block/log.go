package block

import "github.com/decred/slog"

// log is this package's subsystem logger (MINE), disabled until
// cmd/noobcashd wires up the root logger.
var log = slog.Disabled

// UseLogger sets the package-level logger used by block.
func UseLogger(logger slog.Logger) {
	log = logger
}
