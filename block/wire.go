package block

import (
	"fmt"
	"time"

	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// Wire is the JSON shape a block takes on the wire (spec §6): {index,
// previous_hash, nonce, list_of_transactions, hash, timestamp}.
type Wire struct {
	Index        int        `json:"index"`
	PreviousHash string     `json:"previous_hash"`
	Nonce        uint32     `json:"nonce"`
	Transactions []txn.Wire `json:"list_of_transactions"`
	Hash         string     `json:"hash"`
	Timestamp    int64      `json:"timestamp"`
}

// ToWire renders b in the wire shape described by spec §6.
func (b *Block) ToWire() Wire {
	wires := make([]txn.Wire, len(b.Transactions))
	for i, t := range b.Transactions {
		wires[i] = t.ToWire()
	}
	return Wire{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Transactions: wires,
		Hash:         b.Hash,
		Timestamp:    b.Timestamp.Unix(),
	}
}

// FromWire reconstructs a Block from its wire form. Unlike transactions,
// blocks do not rederive their hash on receipt: the hash is taken as given
// and checked separately by ValidateHash, since the receiver must be able
// to tell a tampered hash from a tampered body (spec §4.5.7/§4.5.8).
func FromWire(w Wire, capacity int) (*Block, error) {
	txs := make([]*txn.Transaction, len(w.Transactions))
	for i, tw := range w.Transactions {
		t, err := txn.FromWire(tw)
		if err != nil {
			return nil, fmt.Errorf("block: from wire: transaction %d: %w", i, err)
		}
		txs[i] = t
	}
	return &Block{
		Index:        w.Index,
		PreviousHash: w.PreviousHash,
		Nonce:        w.Nonce,
		Transactions: txs,
		Hash:         w.Hash,
		Timestamp:    time.Unix(w.Timestamp, 0),
		capacity:     capacity,
	}, nil
}
