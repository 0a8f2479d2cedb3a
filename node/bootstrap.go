package node

import (
	"errors"
	"sort"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// ErrNotBootstrap is returned by the membership operations that are only
// meaningful for the bootstrap peer (spec §4.6).
var ErrNotBootstrap = errors.New("node: this peer is not bootstrap")

// NewBootstrap constructs the bootstrap peer's Node: it mints the genesis
// block crediting itself with 100*N coins and credits both rings
// accordingly (spec §3, §4.6). The returned key pair is the bootstrap
// peer's own identity; the caller is responsible for keeping it (and, in
// particular, never transmitting its private half).
func NewBootstrap(cfg Config, address string, transport PeerTransport) (*Node, *ncrypto.KeyPair, error) {
	if !cfg.Bootstrap {
		return nil, nil, errors.New("node: NewBootstrap requires cfg.Bootstrap")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	kp, err := ncrypto.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}

	self := wallet.New(kp.Public, kp.Private, address)
	genesisTx, err := txn.NewGenesis(kp.Public, cfg.GenesisSupply())
	if err != nil {
		return nil, nil, err
	}
	self.AddUTXO(genesisTx.Outputs[0])

	ring := NewRing()
	ring.Set(0, self)

	genesisBlock := block.Genesis(genesisTx, cfg.Capacity)
	genesisChain := chain.New(genesisBlock)

	n, err := New(cfg, 0, ring, genesisChain, transport)
	if err != nil {
		return nil, nil, err
	}
	return n, kp, nil
}

// RegisterNode implements the bootstrap side of spec §4.6's `/node`
// registration: assign joining peer pub/address the next free id,
// registering it in both rings, and return that id plus the blockchain to
// adopt. Idempotent: a repeat call with an already-known public key
// returns the same id without mutating the ring again (spec §8 property
// 10).
func (n *Node) RegisterNode(pub ncrypto.PublicKey, address string) (int, chain.Wire, error) {
	if !n.cfg.Bootstrap {
		return 0, chain.Wire{}, ErrNotBootstrap
	}

	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	n.txMu.Lock()
	defer n.txMu.Unlock()

	if id, ok := n.ringLive.IDForKey(pub); ok {
		return id, n.blockchain.ToWire(), nil
	}

	id := n.ringLive.Len()
	w := wallet.New(pub, nil, address)
	n.ringLive.Set(id, w)
	n.ringBak.Set(id, w.Clone())
	if n.ringLive.Len() == n.cfg.Nodes {
		n.ringComplete = true
	}

	return id, n.blockchain.ToWire(), nil
}

// ReadyForFanOut reports, exactly once — on the call immediately following
// the registration that brought the ring to its full N members — the
// complete ring membership to fan out via `/wallets` (spec §4.6: "When the
// ring reaches N, bootstrap fans out the full ring ... to every joiner").
// Every call after that one returns ok=false. Bootstrap-only.
func (n *Node) ReadyForFanOut() (map[int]wallet.Info, bool) {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	if !n.cfg.Bootstrap || !n.ringComplete || n.fannedOut {
		return nil, false
	}
	n.fannedOut = true
	return n.ringLive.Infos(), true
}

// InitialDistribution implements the tail of spec §4.6: once the ring is
// complete, bootstrap sends 100 NBC from itself to every other peer,
// through the ordinary CreateTransaction path (so each one lands in
// tx_queue and may trigger mining exactly like any locally-initiated
// transaction). Peers are visited in ascending id order. The caller
// broadcasts each returned transaction outside any lock, exactly as
// CreateTransaction's own caller does.
func (n *Node) InitialDistribution(amount int64) ([]*txn.Transaction, error) {
	if !n.cfg.Bootstrap {
		return nil, ErrNotBootstrap
	}

	n.txMu.Lock()
	ids := n.ringLive.IDs()
	sort.Ints(ids)
	receivers := make(map[int]ncrypto.PublicKey, len(ids))
	for _, id := range ids {
		if id == n.myID {
			continue
		}
		if w, ok := n.ringLive.Wallet(id); ok {
			receivers[id] = w.PublicKey()
		}
	}
	n.txMu.Unlock()

	var txs []*txn.Transaction
	for _, id := range ids {
		pub, ok := receivers[id]
		if !ok {
			continue
		}
		t, err := n.CreateTransaction(pub, amount)
		if err != nil {
			return txs, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// ApplyWallets implements the joiner side of spec §4.6's `/wallets`
// delivery: rebuild ring_live and ring_bak from the received identity
// dictionary, preserving this peer's own private-key-bearing wallet
// object in place of the bare Info the dictionary carries for it. The
// caller must still re-run ValidateAndAdoptChain and, on success,
// ProcessUnprocessed, exactly as spec §4.6 describes.
func (n *Node) ApplyWallets(infos map[int]wallet.Info) {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	n.txMu.Lock()
	defer n.txMu.Unlock()

	mine, _ := n.ringLive.Wallet(n.myID)

	live := NewRing()
	for id, info := range infos {
		if id == n.myID && mine != nil {
			live.Set(id, mine)
			continue
		}
		live.Set(id, wallet.New(info.PublicKey, nil, info.Address))
	}

	n.ringLive = live
	n.ringBak = live.Clone()
	n.ringComplete = len(infos) == n.cfg.Nodes
}

// ValidateAndAdoptChain implements the re-validation spec §4.6 requires
// after `/wallets` arrives: replay w against a fresh ring built from
// ring_live's now-complete identities (spec §4.5.9), adopting it as the
// new blockchain/ring_bak/ring_live on success. Returns false if w does
// not validate; the caller is expected to retry first-contact and call
// this again, per spec §4.6.
func (n *Node) ValidateAndAdoptChain(w chain.Wire) bool {
	n.txMu.Lock()
	identityRing := n.ringLive.FreshIdentityClone()
	n.txMu.Unlock()

	newChain, newRing, ok := validChain(w, identityRing, n.cfg.Capacity, n.cfg.Difficulty)
	if !ok {
		return false
	}

	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	n.blockchain = newChain
	n.ringBak = newRing

	n.txMu.Lock()
	defer n.txMu.Unlock()
	n.ringLive = newRing.Clone()
	return true
}
