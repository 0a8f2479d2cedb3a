// Package crypto implements the RSA key pairs, canonical-JSON digesting and
// PKCS#1 v1.5 signing used throughout noobcash to identify peers and to seal
// transactions.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"
)

// KeyBits is the RSA modulus size used for every peer key pair.
const KeyBits = 2048

// PublicKey is the (n, e) pair that identifies a peer. Equality and hashing
// are defined on this pair alone, matching spec §3's definition of K.
type PublicKey struct {
	N *big.Int `json:"n"`
	E int      `json:"e"`
}

// KeyPair bundles a peer's RSA private key together with its public half.
// Only the owning peer's wallet ever holds the private key.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  PublicKey
}

// GenerateKeyPair creates a fresh RSA-2048 key pair for a newly joining
// peer.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key pair: %w", err)
	}
	return &KeyPair{
		Private: priv,
		Public:  PublicKeyFromRSA(&priv.PublicKey),
	}, nil
}

// PublicKeyFromRSA converts a stdlib RSA public key into the wire-shaped
// PublicKey used for hashing and ring indexing.
func PublicKeyFromRSA(pub *rsa.PublicKey) PublicKey {
	return PublicKey{N: new(big.Int).Set(pub.N), E: pub.E}
}

// RSA reconstructs a stdlib *rsa.PublicKey from the wire pair, for use with
// crypto/rsa's verify routines.
func (k PublicKey) RSA() *rsa.PublicKey {
	return &rsa.PublicKey{N: k.N, E: k.E}
}

// Genesis is the sentinel sender key used by the bootstrap peer's genesis
// transaction (spec §3: "sender: K (integer 0 for genesis)").
var Genesis = PublicKey{N: big.NewInt(0), E: 0}

// IsGenesis reports whether k is the sentinel genesis sender key.
func (k PublicKey) IsGenesis() bool {
	return k.E == 0 && k.N != nil && k.N.Sign() == 0
}

// Equal reports whether two public keys identify the same peer.
func (k PublicKey) Equal(other PublicKey) bool {
	if k.E != other.E {
		return false
	}
	if k.N == nil || other.N == nil {
		return k.N == other.N
	}
	return k.N.Cmp(other.N) == 0
}

// String renders a short, stable identifier for logs — the hex of N's low
// bytes plus E, never the full modulus.
func (k PublicKey) String() string {
	if k.N == nil {
		return fmt.Sprintf("pub(nil,e=%d)", k.E)
	}
	b := k.N.Bytes()
	tail := b
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return fmt.Sprintf("pub(%x,e=%d)", tail, k.E)
}

// Key is a comparable form of PublicKey suitable for use as a map key (the
// pubk2id index, spec §3).
type Key string

// MapKey returns the comparable form of the public key for use in Go maps,
// since *big.Int is not itself comparable.
func (k PublicKey) MapKey() Key {
	if k.N == nil {
		return Key(fmt.Sprintf("nil:%d", k.E))
	}
	return Key(fmt.Sprintf("%s:%d", k.N.Text(16), k.E))
}
