package wallet

import ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"

// Info is the wire shape of a peer's identity within the ring (spec §4.6:
// "wallet_dict") — public key and network address, omitting the private
// key and UTXO set that only the owning peer ever sees.
type Info struct {
	PublicKey ncrypto.PublicKey `json:"pubk"`
	Address   string            `json:"address"`
}
