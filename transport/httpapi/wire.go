// Package httpapi is the concrete endpoint adapter of spec §4.7/§6: a
// gorilla/mux JSON router that decodes the named HTTP events and dispatches
// them into a node.Node, plus the node.PeerTransport implementation peers
// use to talk to each other. None of this package holds BlockLock or
// TxLock while performing network I/O (spec §5).
package httpapi

import (
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// registerRequest is the body of POST /node (spec §4.7 "register_node"):
// the joiner's own wallet identity.
type registerRequest struct {
	PublicKey ncrypto.PublicKey `json:"pubk"`
	Address   string            `json:"address"`
}

// registerResponse is the body returned by POST /node.
type registerResponse struct {
	ID         int        `json:"id"`
	Blockchain chain.Wire `json:"blockchain"`
}

// walletsRequest is the body of POST /wallets (spec §4.7 "receive_wallets"):
// the full ring, keyed by node id. JSON object keys must be strings, so ids
// are stringified on the wire and parsed back on receipt.
type walletsRequest struct {
	Wallets map[string]wallet.Info `json:"wallets"`
}

// purchaseRequest is the body of POST /purchase and POST /black_hat_purchase
// (spec §4.7 "create_transaction"/"bogus_transaction"): a receiver by node
// id and an amount.
type purchaseRequest struct {
	ReceiverID int   `json:"receiver_id"`
	Amount     int64 `json:"amount"`
}

// lengthResponse is the body of GET /length.
type lengthResponse struct {
	Length int `json:"length"`
}

// idResponse is the body of GET /id.
type idResponse struct {
	ID int `json:"id"`
}

// balanceResponse is the body of GET /balance.
type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// balancesResponse is the body of GET /balances, keyed by stringified node
// id for the same reason as walletsRequest.
type balancesResponse struct {
	Balances map[string]int64 `json:"balances"`
}

// blockResponse is the body of POST /block and POST /mined_block,
// reporting whether the block was accepted/stored.
type blockResponse struct {
	Accepted bool `json:"accepted"`
}
