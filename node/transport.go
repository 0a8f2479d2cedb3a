package node

import (
	"context"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// PeerTransport is the network collaborator contract declared by spec §1 as
// "out of scope (external collaborators whose interfaces we will only
// declare)": the core never performs network I/O itself while holding
// BlockLock or TxLock (spec §5 "Suspension points"); it calls out through
// this interface only from paths that hold neither lock (fork resolution's
// polling/fetch phase, the miner worker's broadcast of a block it has just
// stored, and the broadcast calls a caller makes after an operation
// returns the object to send).
type PeerTransport interface {
	// Addresses returns every other known peer's node id and "host:port"
	// address, for the length-poll and blockchain-fetch fan-out of
	// spec §4.5.10.
	Addresses() map[int]string

	// Length polls peerAddr's /length endpoint. An unreachable peer is
	// treated as length 0 (spec §7 TransportFailure), so this never
	// returns an error — callers cannot distinguish "peer is behind" from
	// "peer is unreachable", matching the spec's best-effort semantics.
	Length(ctx context.Context, peerAddr string) int

	// FetchBlockchain retrieves peerAddr's full chain for fork
	// resolution (spec §4.5.10 step 4). ok is false on any transport
	// failure.
	FetchBlockchain(ctx context.Context, peerAddr string) (chain.Wire, bool)

	// BroadcastTransaction and BroadcastBlock fan out to every other
	// peer with bounded concurrency (spec §5: "Broadcast fan-out is
	// parallel with a small fixed worker count (~3)"). Best-effort: no
	// retry, no error surfaced (spec §7 TransportFailure).
	BroadcastTransaction(ctx context.Context, w txn.Wire)
	BroadcastBlock(ctx context.Context, w block.Wire)

	// BroadcastWallets fans out the full ring membership to every other
	// peer's /wallets endpoint once bootstrap has observed the ring reach
	// N members (spec §4.6).
	BroadcastWallets(ctx context.Context, wallets map[int]wallet.Info)
}
