package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest is a SHA-1 hash, hex-encoded for wire transport. The spec's
// transaction/block identity hashes and PoW target are defined over this
// digest (spec §3, §4.3); SHA-1 is kept for reference-implementation
// compatibility (see spec §9).
type Digest [sha1.Size]byte

// Hash computes the SHA-1 digest of the given canonical-JSON bytes.
func Hash(canonicalJSON []byte) Digest {
	return sha1.Sum(canonicalJSON)
}

// String renders the digest as lowercase hex, the wire form used for
// transaction ids, block hashes and `inputs` references.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalJSON renders the digest in its wire form, a lowercase hex string —
// both the canonical-JSON identity hashes and the wire schemas of spec §6
// carry digests as hex, never as raw bytes.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses the lowercase hex wire form.
func (d *Digest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("crypto: unmarshal digest: %w", err)
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest decodes a lowercase hex digest as received over the wire.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("crypto: parse digest: %w", err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("crypto: digest has wrong length %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Signature is a raw PKCS#1 v1.5 signature, hex-encoded on the wire (spec
// §6: "Signature: lowercase hex string of raw bytes").
type Signature []byte

// String renders the signature as lowercase hex.
func (s Signature) String() string {
	return hex.EncodeToString(s)
}

// ParseSignature decodes a lowercase hex signature as received over the
// wire.
func ParseSignature(s string) (Signature, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse signature: %w", err)
	}
	return Signature(b), nil
}

// genesisSignature is the sentinel signature carried by the genesis
// transaction, which has no real signer (spec §3: "signature: bytes
// (genesis: sentinel)").
var genesisSignature = Signature([]byte("genesis"))

// GenesisSignature returns the sentinel signature used by the genesis
// transaction.
func GenesisSignature() Signature {
	return genesisSignature
}

// IsGenesisSignature reports whether sig is the genesis sentinel.
func IsGenesisSignature(sig Signature) bool {
	return string(sig) == string(genesisSignature)
}

// Sign seals digest d with the given private key, producing the PKCS#1 v1.5
// signature that covers a transaction's id (spec §3: "signature ... covers
// id").
func Sign(priv *rsa.PrivateKey, d Digest) (Signature, error) {
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, d[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: sign: %w", err)
	}
	return Signature(sig), nil
}

// Verify checks that sig is a valid PKCS#1 v1.5 signature over digest d
// under pub.
func Verify(pub PublicKey, d Digest, sig Signature) bool {
	if pub.N == nil {
		return false
	}
	err := rsa.VerifyPKCS1v15(pub.RSA(), crypto.SHA1, d[:], sig)
	return err == nil
}
