package node

import (
	"github.com/decred/slog"
)

// log is this package's subsystem logger, following degeri-dcrlnd's log.go
// convention of a package-level logger that starts as a disabled
// placeholder and is replaced once the process wires up its root logger.
var log = slog.Disabled

// cnsnLog is the consensus/fork-resolution subsystem logger (CNSN),
// separate from log (NODE) so operators can tune fork-resolution verbosity
// independently — fork switches are rarer and more interesting events than
// the routine traffic logged under NODE.
var cnsnLog = slog.Disabled

// UseLogger sets the package-level logger used by the node package. Called
// by cmd/noobcashd during start-up, the way degeri-dcrlnd's SetupLoggers
// wires each subsystem's UseLogger hook.
func UseLogger(logger slog.Logger) {
	log = logger
}

// UseConsensusLogger sets the CNSN subsystem logger used by fork resolution.
func UseConsensusLogger(logger slog.Logger) {
	cnsnLog = logger
}
