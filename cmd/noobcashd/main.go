// Command noobcashd runs a single noobcash peer: it brings up the
// replicated state engine (package node), binds it to the HTTP endpoint
// adapter (package httpapi), joins or mints the network per spec §4.6, and
// then drives an interactive REPL for the commands of spec §6.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/decred/slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/build"
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/metrics"
	"github.com/georgevidalakis/noobcash-blockchain/node"
	"github.com/georgevidalakis/noobcash-blockchain/transport/httpapi"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// firstContactRetryDelay paces the retry loop a joiner runs against
// bootstrap when its tentatively-adopted chain fails to validate against
// the now-complete ring (spec §4.6: "retrying first_contact if
// necessary"), and the loop bootstrap's own REPL waits on for the ring to
// fill (original_source/noobcash's cli.py polls /ring the same way).
const firstContactRetryDelay = 500 * time.Millisecond

// initialDistributionAmount is the 100 NBC bootstrap sends to every other
// peer once the ring is complete (spec §4.6).
const initialDistributionAmount = 100

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "noobcashd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logWriter := setupLogging(cfg)
	log := wireLoggers(logWriter)

	ncfg := node.Config{
		Capacity:   cfg.Capacity,
		Difficulty: cfg.Difficulty,
		Nodes:      cfg.Nodes,
		Bootstrap:  cfg.Bootstrap,
	}

	address := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	transportClient := httpapi.NewClient(nil)

	var (
		n  *node.Node
		kp *ncrypto.KeyPair
	)

	if cfg.Bootstrap {
		n, kp, err = node.NewBootstrap(ncfg, address, transportClient)
		if err != nil {
			return fmt.Errorf("bootstrap startup: %w", err)
		}
		log.Infof("started as bootstrap, id 0, genesis supply %d", ncfg.GenesisSupply())
	} else {
		kp, err = ncrypto.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generate key pair: %w", err)
		}

		id, bc, err := httpapi.RegisterAt(ctx, cfg.BootstrapAddress, kp.Public, address)
		if err != nil {
			return fmt.Errorf("register with bootstrap at %s: %w", cfg.BootstrapAddress, err)
		}

		genesisChain, err := chain.FromWire(bc, cfg.Capacity)
		if err != nil {
			return fmt.Errorf("adopt bootstrap's genesis chain: %w", err)
		}

		ring := node.NewRing()
		ring.Set(id, wallet.New(kp.Public, kp.Private, address))
		transportClient.SetAddresses(map[int]string{0: cfg.BootstrapAddress})

		n, err = node.New(ncfg, id, ring, genesisChain, transportClient)
		if err != nil {
			return fmt.Errorf("construct node: %w", err)
		}
		log.Infof("registered with bootstrap, assigned id %d", id)
	}

	server := httpapi.NewServer(n)
	wireHooks(ctx, n, cfg, kp, address, transportClient, server, log)

	router := server.Router()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: router}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server stopped: %v", err)
		}
	}()

	if cfg.Bootstrap {
		waitForNetworkEstablishment(n)
	}

	return runREPL(ctx, n, transportClient, cfg)
}

// wireHooks wires the post-registration and post-wallets-received glue
// that needs the process's own HTTP client and key material — work
// node.Node itself has no slot for: it never registers with bootstrap or
// fans out wallets on its own.
func wireHooks(
	ctx context.Context,
	n *node.Node,
	cfg *config,
	kp *ncrypto.KeyPair,
	address string,
	transportClient *httpapi.Client,
	server *httpapi.Server,
	log slog.Logger,
) {
	if cfg.Bootstrap {
		server.OnNodeRegistered(func() {
			transportClient.SetAddresses(n.PeerAddresses())

			infos, ok := n.ReadyForFanOut()
			if !ok {
				return
			}
			log.Infof("ring complete, fanning out wallets to %d peers", len(infos)-1)
			transportClient.BroadcastWallets(ctx, infos)

			txs, err := n.InitialDistribution(initialDistributionAmount)
			if err != nil {
				log.Warnf("initial distribution stopped early: %v", err)
			}
			for _, t := range txs {
				transportClient.BroadcastTransaction(ctx, t.ToWire())
			}
		})
		return
	}

	server.OnWalletsReceived(func() {
		transportClient.SetAddresses(n.PeerAddresses())

		for {
			_, bc, err := httpapi.RegisterAt(ctx, cfg.BootstrapAddress, kp.Public, address)
			if err == nil && n.ValidateAndAdoptChain(bc) {
				break
			}
			log.Warnf("first contact retry: chain did not validate against the complete ring yet")
			time.Sleep(firstContactRetryDelay)
		}
		n.ProcessUnprocessed()
	})
}

// waitForNetworkEstablishment blocks bootstrap's REPL from opening until
// every peer has registered, mirroring original_source/noobcash's cli.py
// polling /ring before entering its own command loop.
func waitForNetworkEstablishment(n *node.Node) {
	for !n.RingComplete() {
		time.Sleep(firstContactRetryDelay)
	}
}

// setupLogging builds the process's root log sink, following
// degeri-dcrlnd's build/log_filelog.go convention: stdout by default,
// switched to a rotating file when built with -tags filelog.
func setupLogging(cfg *config) *build.RotatingLogWriter {
	w := build.NewRotatingLogWriter()
	if build.LoggingType == build.LogTypeRotatingFile {
		if err := w.InitLogRotator(cfg.LogFile, defaultMaxLogSizeKB, defaultMaxLogRolls); err != nil {
			fmt.Fprintf(os.Stderr, "noobcashd: could not open log file %s: %v\n", cfg.LogFile, err)
		}
	}
	return w
}

// wireLoggers registers every package's subsystem logger against root,
// following degeri-dcrlnd's log.go SetupLoggers convention, and returns
// this binary's own MAIN logger.
func wireLoggers(root *build.RotatingLogWriter) slog.Logger {
	block.UseLogger(root.GenSubLogger("MINE"))
	chain.UseLogger(root.GenSubLogger("CHAN"))
	wallet.UseLogger(root.GenSubLogger("WLLT"))
	node.UseLogger(root.GenSubLogger("NODE"))
	node.UseConsensusLogger(root.GenSubLogger("CNSN"))
	httpapi.UseLogger(root.GenSubLogger("RPCS"))

	return root.GenSubLogger("MAIN")
}
