package txn

import (
	"fmt"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// Wire is the JSON shape a transaction takes on the wire (spec §6): the
// transaction_id is never transmitted, it is reconstructed by the receiver.
type Wire struct {
	SenderPubk   ncrypto.PublicKey `json:"sender_pubk"`
	ReceiverPubk ncrypto.PublicKey `json:"receiver_pubk"`
	Inputs       []string          `json:"transaction_inputs"`
	Outputs      []wallet.UTXO     `json:"transaction_outputs"`
	Signature    string            `json:"signature"`
}

// ToWire renders t in the wire shape described by spec §6.
func (t *Transaction) ToWire() Wire {
	inputs := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		inputs[i] = in.String()
	}
	return Wire{
		SenderPubk:   t.Sender,
		ReceiverPubk: t.Receiver,
		Inputs:       inputs,
		Outputs:      t.Outputs,
		Signature:    t.Signature.String(),
	}
}

// FromWire reconstructs a Transaction from its wire form, deterministically
// rederiving id from (sender, receiver, inputs) per spec §4.1, and rejects
// the message if the recomputed id doesn't match every output's carried
// tx_id.
func FromWire(w Wire) (*Transaction, error) {
	inputs := make([]ncrypto.Digest, len(w.Inputs))
	for i, s := range w.Inputs {
		d, err := ncrypto.ParseDigest(s)
		if err != nil {
			return nil, fmt.Errorf("txn: from wire: input %d: %w", i, err)
		}
		inputs[i] = d
	}

	id, err := computeID(w.SenderPubk, w.ReceiverPubk, inputs)
	if err != nil {
		return nil, err
	}

	for i, o := range w.Outputs {
		if o.TxID != id {
			return nil, fmt.Errorf("txn: from wire: output %d carries tx_id %s, recomputed id is %s",
				i, o.TxID, id)
		}
	}

	var sig ncrypto.Signature
	if w.SenderPubk.IsGenesis() {
		sig = ncrypto.GenesisSignature()
	} else {
		sig, err = ncrypto.ParseSignature(w.Signature)
		if err != nil {
			return nil, fmt.Errorf("txn: from wire: signature: %w", err)
		}
	}

	return &Transaction{
		Sender:    w.SenderPubk,
		Receiver:  w.ReceiverPubk,
		Inputs:    inputs,
		Outputs:   w.Outputs,
		ID:        id,
		Signature: sig,
	}, nil
}
