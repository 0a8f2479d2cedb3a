// Package node implements the per-peer replicated state engine of spec §4.5
// (the node state engine) and §4.6 (membership/bootstrap): the dual rings,
// the live/shadow mempools, the miner supervisor and the fork-resolution
// protocol, wired together the way degeri-dcrlnd's log.go wires its own
// subsystems, with a mine-supervisor grounded on the geth-lineage
// miner.worker pattern (maxbibeau-go-quai/core/worker.go,
// DATxChain-Protocol-DATx/miner/worker.go) since the teacher, an off-chain
// Lightning node, has no proof-of-work analogue.
package node

import (
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// Ring is the mapping node_id -> Wallet of spec §3: "R: Mapping node_id:
// int -> W". A Node keeps two: ringLive (mempool-projected state) and
// ringBak (on-chain state).
type Ring struct {
	wallets map[int]*wallet.Wallet
	pubk2id map[ncrypto.Key]int
}

// NewRing creates an empty ring.
func NewRing() *Ring {
	return &Ring{
		wallets: make(map[int]*wallet.Wallet),
		pubk2id: make(map[ncrypto.Key]int),
	}
}

// Set registers w under id and indexes its public key (the pubk2id
// auxiliary index of spec §3).
func (r *Ring) Set(id int, w *wallet.Wallet) {
	r.wallets[id] = w
	r.pubk2id[w.PublicKey().MapKey()] = id
}

// Wallet returns the wallet registered under id.
func (r *Ring) Wallet(id int) (*wallet.Wallet, bool) {
	w, ok := r.wallets[id]
	return w, ok
}

// WalletForKey returns the wallet belonging to pub, using the pubk2id
// index.
func (r *Ring) WalletForKey(pub ncrypto.PublicKey) (*wallet.Wallet, bool) {
	id, ok := r.pubk2id[pub.MapKey()]
	if !ok {
		return nil, false
	}
	return r.Wallet(id)
}

// IDForKey returns the node id registered for pub.
func (r *Ring) IDForKey(pub ncrypto.PublicKey) (int, bool) {
	id, ok := r.pubk2id[pub.MapKey()]
	return id, ok
}

// Len returns the number of wallets currently registered.
func (r *Ring) Len() int {
	return len(r.wallets)
}

// IDs returns every registered node id, unordered.
func (r *Ring) IDs() []int {
	ids := make([]int, 0, len(r.wallets))
	for id := range r.wallets {
		ids = append(ids, id)
	}
	return ids
}

// Clone returns a deep copy of the ring, used when snapshotting for block
// validation (spec §4.5.7).
func (r *Ring) Clone() *Ring {
	c := NewRing()
	for id, w := range r.wallets {
		c.Set(id, w.Clone())
	}
	return c
}

// FreshIdentityClone returns a ring with the same identities (public key,
// private key if owned, address) as r, but with every wallet's UTXO set
// reset to empty. This is the "fresh ring cloned from ring_live" of spec
// §4.5.9: chain validation replays the whole chain from genesis against an
// empty ring that still knows who every peer is.
func (r *Ring) FreshIdentityClone() *Ring {
	c := NewRing()
	for id, w := range r.wallets {
		c.Set(id, wallet.New(w.PublicKey(), w.PrivateKey(), w.Address()))
	}
	return c
}

// Infos returns the wire-shaped identity (public key, address) of every
// registered peer, the "full ring" fanned out via /wallets (spec §4.6).
func (r *Ring) Infos() map[int]wallet.Info {
	out := make(map[int]wallet.Info, len(r.wallets))
	for id, w := range r.wallets {
		out[id] = wallet.Info{PublicKey: w.PublicKey(), Address: w.Address()}
	}
	return out
}

// Balances returns every node id's current balance.
func (r *Ring) Balances() map[int]int64 {
	out := make(map[int]int64, len(r.wallets))
	for id, w := range r.wallets {
		out[id] = w.Balance()
	}
	return out
}

// TotalBalance sums every wallet's balance — used to assert the conservation
// invariant of spec §8.5 in tests.
func (r *Ring) TotalBalance() int64 {
	var total int64
	for _, w := range r.wallets {
		total += w.Balance()
	}
	return total
}
