package node

import (
	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// validProof implements spec §4.5.7: check b's proof of work (skipped for
// the genesis block, whose hash is the literal sentinel of spec §9), then
// replay its transactions against a clone of ring, crediting outputs and
// consuming inputs exactly as the live path does. It mutates nothing on
// failure; on success it returns the advanced clone, ready to become the new
// ring_bak.
func validProof(b *block.Block, difficulty int, ring *Ring) (*Ring, bool) {
	if !b.IsGenesis() && !b.ValidateHash(difficulty) {
		return nil, false
	}

	working := ring.Clone()
	for _, t := range b.Transactions {
		if t.Sender.IsGenesis() {
			if err := txn.ApplyOutputs(t, working.WalletForKey); err != nil {
				return nil, false
			}
			continue
		}
		senderWallet, ok := working.WalletForKey(t.Sender)
		if !ok {
			return nil, false
		}
		if err := txn.Validate(t, senderWallet); err != nil {
			return nil, false
		}
		if err := txn.ApplyOutputs(t, working.WalletForKey); err != nil {
			return nil, false
		}
	}
	return working, true
}

// validChain implements spec §4.5.9: replay an entire foreign chain from
// genesis against identityRing, a fresh empty-UTXO ring built from
// ring_live's known identities (preserving this peer's own private key),
// validating each block's linkage and proof of work in order. The caller
// must pass a private clone (Ring.FreshIdentityClone taken under TxLock);
// validChain owns it from then on. On success it returns the reconstructed
// chain and the ring it produced, ready to replace ring_bak and ring_live.
func validChain(w chain.Wire, identityRing *Ring, capacity, difficulty int) (*chain.Chain, *Ring, bool) {
	if len(w.Chain) == 0 {
		return nil, nil, false
	}

	genesisWire := w.Chain[0]
	if genesisWire.PreviousHash != block.GenesisPreviousHash || genesisWire.Hash != block.GenesisHash {
		return nil, nil, false
	}
	genesis, err := block.FromWire(genesisWire, capacity)
	if err != nil {
		return nil, nil, false
	}

	ring, ok := validProof(genesis, difficulty, identityRing)
	if !ok {
		return nil, nil, false
	}

	blocks := []*block.Block{genesis}
	prevHash := genesis.Hash
	for i := 1; i < len(w.Chain); i++ {
		bw := w.Chain[i]
		b, err := block.FromWire(bw, capacity)
		if err != nil {
			return nil, nil, false
		}
		if b.Index != i || b.PreviousHash != prevHash {
			return nil, nil, false
		}
		working, ok := validProof(b, difficulty, ring)
		if !ok {
			return nil, nil, false
		}
		ring = working
		blocks = append(blocks, b)
		prevHash = b.Hash
	}

	c := chain.New(blocks[0])
	for _, b := range blocks[1:] {
		c.Append(b)
	}
	return c, ring, true
}
