// Package txn implements transaction construction, canonical hashing,
// signing and validation (spec §3, §4.1), adapted from degeri-dcrlnd's
// lnwallet/dcrwallet/signer.go sign/verify split.
package txn

import (
	"encoding/json"
	"fmt"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// Transaction is the UTXO-consuming, UTXO-producing value transfer of spec
// §3. Equality and hashing are on ID alone.
type Transaction struct {
	Sender   ncrypto.PublicKey `json:"sender_pubk"`
	Receiver ncrypto.PublicKey `json:"receiver_pubk"`
	Inputs   []ncrypto.Digest  `json:"transaction_inputs"`
	Outputs  []wallet.UTXO     `json:"transaction_outputs"`

	ID        ncrypto.Digest    `json:"-"`
	Signature ncrypto.Signature `json:"-"`
}

// canonicalPayload is marshaled with exactly the field order spec §6
// requires for the identity hash: {sender_pubk, receiver_pubk,
// transaction_inputs}. Struct field declaration order is what
// encoding/json honors, so this type exists solely to pin that order.
type canonicalPayload struct {
	Sender   ncrypto.PublicKey `json:"sender_pubk"`
	Receiver ncrypto.PublicKey `json:"receiver_pubk"`
	Inputs   []ncrypto.Digest  `json:"transaction_inputs"`
}

// computeID derives the deterministic transaction id over (sender,
// receiver, inputs), per spec §3/§4.1 — value is deliberately absent, since
// it is implicit in the (derived) outputs.
func computeID(sender, receiver ncrypto.PublicKey, inputs []ncrypto.Digest) (ncrypto.Digest, error) {
	// A nil slice and an empty one encode differently (null vs []); the
	// genesis transaction has no inputs and both sides of the wire must
	// land on the same encoding.
	if len(inputs) == 0 {
		inputs = nil
	}
	payload := canonicalPayload{Sender: sender, Receiver: receiver, Inputs: inputs}
	b, err := json.Marshal(payload)
	if err != nil {
		return ncrypto.Digest{}, fmt.Errorf("txn: canonical encode: %w", err)
	}
	return ncrypto.Hash(b), nil
}

// New constructs and signs a transaction spending from senderWallet,
// following spec §4.1's construction path:
//  1. atomically pick (inputs, change) via the necessary-UTXOs policy;
//  2. compute id over (sender, receiver, inputs);
//  3. build outputs, appending a change output iff change > 0;
//  4. sign id with the sender's private key.
//
// Returns wallet.ErrInsufficientFunds (wrapped) if senderWallet cannot
// cover amount.
func New(senderWallet *wallet.Wallet, receiver ncrypto.PublicKey, amount int64) (*Transaction, error) {
	if senderWallet.PrivateKey() == nil {
		return nil, fmt.Errorf("txn: cannot construct a transaction without the sender's private key")
	}

	inputs, change, err := senderWallet.GetSufficientUTXOs(amount)
	if err != nil {
		return nil, fmt.Errorf("txn: construct: %w", err)
	}

	sender := senderWallet.PublicKey()
	id, err := computeID(sender, receiver, inputs)
	if err != nil {
		return nil, err
	}

	outputs := []wallet.UTXO{{TxID: id, Receiver: receiver, Amount: amount}}
	if change > 0 {
		outputs = append(outputs, wallet.UTXO{TxID: id, Receiver: sender, Amount: change})
	}

	sig, err := ncrypto.Sign(senderWallet.PrivateKey(), id)
	if err != nil {
		return nil, fmt.Errorf("txn: sign: %w", err)
	}

	return &Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Inputs:    inputs,
		Outputs:   outputs,
		ID:        id,
		Signature: sig,
	}, nil
}

// NewGenesis builds the sentinel genesis transaction crediting receiver
// with amount, used once at chain creation (spec §3, §4.6).
func NewGenesis(receiver ncrypto.PublicKey, amount int64) (*Transaction, error) {
	id, err := computeID(ncrypto.Genesis, receiver, nil)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Sender:    ncrypto.Genesis,
		Receiver:  receiver,
		Inputs:    nil,
		Outputs:   []wallet.UTXO{{TxID: id, Receiver: receiver, Amount: amount}},
		ID:        id,
		Signature: ncrypto.GenesisSignature(),
	}, nil
}

// NewBogus fabricates a transaction signed correctly by senderWallet's
// owner, spending every UTXO the wallet currently holds as inputs, but
// requesting amount regardless of whether those inputs actually cover it.
// It does not consume anything from senderWallet. Used to exercise the
// check-and-consume rejection path end to end (spec §4.7
// "bogus_transaction", §8 scenario S6), restored from
// original_source/noobcash/node.py's create_bogus_transaction.
func NewBogus(senderWallet *wallet.Wallet, receiver ncrypto.PublicKey, amount int64) (*Transaction, error) {
	if senderWallet.PrivateKey() == nil {
		return nil, fmt.Errorf("txn: cannot construct a transaction without the sender's private key")
	}

	utxos := senderWallet.UTXOs()
	inputs := make([]ncrypto.Digest, len(utxos))
	for i, u := range utxos {
		inputs[i] = u.TxID
	}

	sender := senderWallet.PublicKey()
	id, err := computeID(sender, receiver, inputs)
	if err != nil {
		return nil, err
	}

	outputs := []wallet.UTXO{{TxID: id, Receiver: receiver, Amount: amount}}

	sig, err := ncrypto.Sign(senderWallet.PrivateKey(), id)
	if err != nil {
		return nil, fmt.Errorf("txn: sign: %w", err)
	}

	return &Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Inputs:    inputs,
		Outputs:   outputs,
		ID:        id,
		Signature: sig,
	}, nil
}

// TotalOutput returns the sum of a transaction's output amounts.
func (t *Transaction) TotalOutput() int64 {
	var sum int64
	for _, o := range t.Outputs {
		sum += o.Amount
	}
	return sum
}

// Equal reports whether two transactions share an id, the equality
// relation defined by spec §4.1.
func (t *Transaction) Equal(other *Transaction) bool {
	return other != nil && t.ID == other.ID
}
