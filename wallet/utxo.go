// Package wallet implements the UTXO set and per-peer wallet bookkeeping
// described in spec §3 (UTXO, Wallet) and §4.2 (Wallet operations),
// including the necessary-UTXOs input-selection policy adapted from
// degeri-dcrlnd's lnwallet/chanfunding coin-selection loop.
package wallet

import (
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
)

// UTXO is an immutable unspent transaction output, keyed within a wallet by
// the id of the transaction that created it (spec §3: "U: (tx_id, receiver,
// amount)").
type UTXO struct {
	TxID     ncrypto.Digest    `json:"transaction_id"`
	Receiver ncrypto.PublicKey `json:"receiver_pubk"`
	Amount   int64             `json:"amount"`
}
