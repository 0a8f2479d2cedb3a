// Package block implements the fixed-capacity transaction container and
// proof-of-work search described in spec §4.3, adapted in shape (assemble a
// bounded batch, then seal it against a target) from the geth-lineage
// miner.worker pattern seen in maxbibeau-go-quai/core/worker.go and
// DATxChain-Protocol-DATx/miner/worker.go — neither of which the teacher,
// an off-chain Lightning node, has an analogue for.
package block

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// HashBits is the width, in bits, of the block/transaction digest (SHA-1,
// spec §4.3: "L = 160").
const HashBits = 160

// GenesisPreviousHash and GenesisHash are the literal sentinel values
// carried by block 0 (spec §9 open question): they do not satisfy the PoW
// inequality, and chain validation must skip the PoW check for block 0.
const (
	GenesisPreviousHash = "1"
	GenesisHash         = "0"
)

// Block is the fixed-capacity transaction container of spec §3/§4.3. The
// timestamp is informational only and is not covered by Hash.
type Block struct {
	Index        int
	PreviousHash string
	Nonce        uint32
	Transactions []*txn.Transaction
	Hash         string
	Timestamp    time.Time

	capacity int
}

// New creates an empty block extending previousHash at the given index and
// records capacity (see Capacity). AddTransactions does not check the
// number of transactions against it.
func New(index int, previousHash string, capacity int) *Block {
	return &Block{
		Index:        index,
		PreviousHash: previousHash,
		capacity:     capacity,
	}
}

// Genesis builds block 0, containing the single genesis transaction that
// credits the bootstrap peer with 100*N coins (spec §3, §4.6). Its
// previous_hash/hash carry the literal sentinel values of spec §9; they are
// never validated against the PoW inequality.
func Genesis(genesisTx *txn.Transaction, capacity int) *Block {
	return &Block{
		Index:        0,
		PreviousHash: GenesisPreviousHash,
		Nonce:        0,
		Transactions: []*txn.Transaction{genesisTx},
		Hash:         GenesisHash,
		Timestamp:    time.Time{},
		capacity:     capacity,
	}
}

// IsGenesis reports whether b is block 0.
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}

// Capacity returns the capacity recorded at construction. It is not
// enforced: nothing compares it with len(Transactions).
func (b *Block) Capacity() int {
	return b.capacity
}

// AddTransactions appends txs to the block's list, returning the new
// length. Spec §4.4: "add_transactions(list) appends, returning new
// length."
func (b *Block) AddTransactions(txs []*txn.Transaction) int {
	b.Transactions = append(b.Transactions, txs...)
	return len(b.Transactions)
}

// canonicalBlock is marshaled with exactly the field order spec §6
// requires for the block identity hash: {index, previous_hash, nonce,
// list_of_transactions}.
type canonicalBlock struct {
	Index        int        `json:"index"`
	PreviousHash string     `json:"previous_hash"`
	Nonce        uint32     `json:"nonce"`
	Transactions []txn.Wire `json:"list_of_transactions"`
}

func (b *Block) canonicalPayload() ([]byte, error) {
	wires := make([]txn.Wire, len(b.Transactions))
	for i, t := range b.Transactions {
		wires[i] = t.ToWire()
	}
	payload := canonicalBlock{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Transactions: wires,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("block: canonical encode: %w", err)
	}
	return data, nil
}

// computeHash computes SHA1(canonical_json(index, previous_hash, nonce,
// list_of_transactions)).
func (b *Block) computeHash() (ncrypto.Digest, error) {
	payload, err := b.canonicalPayload()
	if err != nil {
		return ncrypto.Digest{}, err
	}
	return ncrypto.Hash(payload), nil
}

// target returns 2^(HashBits-difficulty), the PoW threshold of spec §4.3.
func target(difficulty int) *big.Int {
	t := big.NewInt(1)
	t.Lsh(t, uint(HashBits-difficulty))
	return t
}

func digestBelowTarget(d ncrypto.Digest, t *big.Int) bool {
	n := new(big.Int).SetBytes(d[:])
	return n.Cmp(t) < 0
}

// randomNonce draws a nonce uniformly from [0, 2^32), spec §4.3: "samples
// nonces uniformly at random ... with replacement".
func randomNonce() (uint32, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 32))
	if err != nil {
		return 0, fmt.Errorf("block: draw nonce: %w", err)
	}
	return uint32(n.Uint64()), nil
}

// ErrMiningAborted is returned by Mine when ctx is cancelled before a
// satisfying nonce is found — the fire-and-forget cancellation path used by
// the node's mine-supervisor (spec §4.5.5, §5 "Cancellation").
var ErrMiningAborted = fmt.Errorf("block: mining aborted")

// Mine searches for a nonce such that Hash < 2^(HashBits-difficulty),
// drawing candidates uniformly at random with replacement so concurrent
// miners on different peers do not systematically collide on nonce
// ordering (spec §4.3). It sets Nonce, Hash and Timestamp on success. ctx
// cancellation is checked between draws and returns ErrMiningAborted
// without mutating the block's sealed fields.
func (b *Block) Mine(ctx context.Context, difficulty int) error {
	if difficulty <= 0 || difficulty >= HashBits {
		return fmt.Errorf("block: difficulty must be in [1, %d)", HashBits)
	}
	t := target(difficulty)
	origNonce := b.Nonce
	for {
		select {
		case <-ctx.Done():
			b.Nonce = origNonce
			return ErrMiningAborted
		default:
		}

		nonce, err := randomNonce()
		if err != nil {
			return err
		}
		b.Nonce = nonce
		digest, err := b.computeHash()
		if err != nil {
			return err
		}
		if digestBelowTarget(digest, t) {
			b.Hash = digest.String()
			b.Timestamp = time.Now()
			log.Debugf("block: mined block %d with nonce %d, hash %s", b.Index, nonce, b.Hash)
			return nil
		}
	}
}

// ValidateHash recomputes b's hash from its fields and tests it against the
// PoW inequality for difficulty, spec §4.3: "validate_hash(difficulty)
// recomputes the hash and tests the same inequality."
func (b *Block) ValidateHash(difficulty int) bool {
	digest, err := b.computeHash()
	if err != nil {
		return false
	}
	if digest.String() != b.Hash {
		return false
	}
	return digestBelowTarget(digest, target(difficulty))
}
