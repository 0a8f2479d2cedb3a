package node

import (
	"sync"

	"github.com/georgevidalakis/noobcash-blockchain/chain"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// Node is the per-peer replicated state engine of spec §4.5: it owns the
// dual rings, the two mempools, the blockchain and the miner supervisor,
// and exposes the operations the endpoint adapter (spec §4.7) dispatches
// into.
//
// Locking discipline (spec §5): blockMu guards the blockchain, ringBak and
// the chain-level view of consensus; txMu guards ringLive and both
// mempools. Wherever both are held (receive-block, fork resolution,
// self-mined-block arrival, registration, wallet and chain adoption,
// snapshots), blockMu is acquired before txMu, never the reverse. The miner handle is guarded by its own leaf mutex, minerMu,
// which is never held while acquiring blockMu or txMu, so it can be
// consulted from any lock context without risking deadlock — mirroring
// spec §4.5.5's description of the miner handle as "the only shared
// variable touched without a lock".
type Node struct {
	cfg Config

	myID int

	blockMu sync.Mutex
	txMu    sync.Mutex

	ringLive *Ring
	ringBak  *Ring

	blockchain *chain.Chain

	txQueue          []*txn.Transaction
	unprocessedQueue []*txn.Transaction
	ringComplete     bool
	fannedOut        bool

	minerMu     sync.Mutex
	minerCancel func()
	minerGen    uint64

	transport PeerTransport
}

// New constructs a Node for peer myID with ring as its ring_live and a copy
// of it as its ring_bak. The ring need not be complete: RingComplete
// reports whether it already holds cfg.Nodes wallets (bootstrap starts with
// only itself, a joiner with only its own wallet). genesisChain is the
// chain to adopt.
func New(cfg Config, myID int, ring *Ring, genesisChain *chain.Chain, transport PeerTransport) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Node{
		cfg:          cfg,
		myID:         myID,
		ringLive:     ring,
		ringBak:      ring.Clone(),
		blockchain:   genesisChain,
		ringComplete: ring.Len() == cfg.Nodes,
		transport:    transport,
	}, nil
}

// ID returns this peer's node id.
func (n *Node) ID() int {
	return n.myID
}

// Config returns the node's configuration.
func (n *Node) Config() Config {
	return n.cfg
}

// MyWallet returns this peer's own (private-key-bearing) wallet from
// ring_live.
func (n *Node) MyWallet() *wallet.Wallet {
	w, _ := n.ringLive.Wallet(n.myID)
	return w
}

// MyPublicKey returns this peer's public key.
func (n *Node) MyPublicKey() ncrypto.PublicKey {
	return n.MyWallet().PublicKey()
}

// Blockchain returns the node's blockchain. The chain pointer itself is
// swapped during a fork switch, so the read goes through BlockLock.
func (n *Node) Blockchain() *chain.Chain {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	return n.blockchain
}

// Balance returns the balance of node id in ring_bak, the on-chain view
// (spec §4.7: "balance ... returns int").
func (n *Node) Balance(id int) (int64, bool) {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	w, ok := n.ringBak.Wallet(id)
	if !ok {
		return 0, false
	}
	return w.Balance(), true
}

// Balances returns every node id's on-chain balance (spec §4.7: "balances
// ... returns per-id map").
func (n *Node) Balances() map[int]int64 {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	return n.ringBak.Balances()
}

// RingComplete reports whether the ring holds a wallet for every one of the
// cfg.Nodes peers (spec §4.5.2: "ring is not yet fully populated").
func (n *Node) RingComplete() bool {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	return n.ringComplete
}

// PeerAddresses returns every other known peer's "host:port" address,
// excluding self — the shape node.PeerTransport.Addresses needs and that
// the process's transport client must be kept in sync with as the ring
// grows from registrations and, later, wallet fan-out (spec §4.6).
func (n *Node) PeerAddresses() map[int]string {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	out := make(map[int]string, n.ringLive.Len())
	for id, info := range n.ringLive.Infos() {
		if id == n.myID {
			continue
		}
		out[id] = info.Address
	}
	return out
}

// TxQueueLen returns the current length of tx_queue, for tests and
// diagnostics.
func (n *Node) TxQueueLen() int {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	return len(n.txQueue)
}

// UnprocessedQueueLen returns the current length of unprocessed_queue, for
// tests and diagnostics.
func (n *Node) UnprocessedQueueLen() int {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	return len(n.unprocessedQueue)
}

// PublicKeyForID returns node id's public key as currently known to
// ring_live, resolving a `receiver_id` from spec §4.7's
// create_transaction/bogus_transaction requests into the key those
// operations need.
func (n *Node) PublicKeyForID(id int) (ncrypto.PublicKey, bool) {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	w, ok := n.ringLive.Wallet(id)
	if !ok {
		return ncrypto.PublicKey{}, false
	}
	return w.PublicKey(), true
}

// Snapshot is a point-in-time view of a node's replicated state, meant to
// be rendered with go-spew behind the `/view` endpoint and the CLI's
// `view` command (spec §4.7, restored from original_source/noobcash's
// rest.py dumps).
type Snapshot struct {
	ID               int
	RingBalances     map[int]int64
	TxQueueLen       int
	UnprocessedLen   int
	BlockchainLength int
}

// TakeSnapshot builds a Snapshot of the node's current state.
func (n *Node) TakeSnapshot() Snapshot {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	n.txMu.Lock()
	defer n.txMu.Unlock()
	return Snapshot{
		ID:               n.myID,
		RingBalances:     n.ringBak.Balances(),
		TxQueueLen:       len(n.txQueue),
		UnprocessedLen:   len(n.unprocessedQueue),
		BlockchainLength: n.blockchain.Len(),
	}
}
