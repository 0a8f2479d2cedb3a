package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

const (
	// defaultCapacity is the fixed block capacity when -c is omitted.
	defaultCapacity = 5

	// defaultDifficulty is the proof-of-work difficulty when -d is
	// omitted (spec §6: "difficulty: int∈[1,160)").
	defaultDifficulty = 4

	// defaultLogFilename is the rotating log file written by binaries
	// built with the filelog tag (build.RotatingLogWriter).
	defaultLogFilename = "noobcashd.log"

	// defaultMaxLogSizeKB is the rotation threshold, in kilobytes, for
	// the filelog sink.
	defaultMaxLogSizeKB = 10 * 1024

	// defaultMaxLogRolls is how many rotated log files the filelog sink
	// keeps before dropping the oldest.
	defaultMaxLogRolls = 3
)

// config holds every process flag noobcashd accepts, parsed with
// jessevdk/go-flags the way degeri-dcrlnd's lnd binary parses its own
// config struct.
type config struct {
	Port             int    `short:"p" long:"port" description:"Port this peer listens on" required:"true"`
	Bootstrap        bool   `short:"b" long:"bootstrap" description:"Run as the bootstrap peer (node id 0)"`
	BootstrapAddress string `short:"a" long:"bootstrap_address" description:"host:port of the bootstrap peer, required unless -b is set"`
	Capacity         int    `short:"c" long:"capacity" description:"Transactions per block" default:"5"`
	Nodes            int    `short:"n" long:"nodes" description:"Total number of peers N in the network" required:"true"`
	Difficulty       int    `short:"d" long:"difficulty" description:"Proof-of-work difficulty, leading zero bits of the 160-bit hash" default:"4"`
	Script           string `short:"s" long:"script" description:"Path to a script of REPL commands to run non-interactively, then exit"`
	LogFile          string `long:"logfile" description:"Rotating log file path (only used when built with -tags filelog)" default:"noobcashd.log"`
}

// loadConfig parses os.Args into a config, applying the defaults above, and
// validates the combination of -b/-a the way degeri-dcrlnd's loadConfig
// cross-checks related flags after the initial flags.Parse pass.
func loadConfig() (*config, error) {
	cfg := config{
		Capacity:   defaultCapacity,
		Difficulty: defaultDifficulty,
		LogFile:    defaultLogFilename,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if !cfg.Bootstrap && cfg.BootstrapAddress == "" {
		return nil, fmt.Errorf("noobcashd: -a/--bootstrap_address is required unless -b/--bootstrap is set")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("noobcashd: -p/--port must be > 0")
	}

	return &cfg, nil
}
