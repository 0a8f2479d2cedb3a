// Package chain implements the append-only blockchain store of spec §3/§4.4:
// an ordered sequence of blocks, a hash index for O(1) ancestry tests, and
// an order-preserving view over every contained transaction.
package chain

import (
	"fmt"
	"sync"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// Chain is the append-only sequence of blocks maintained by each peer.
// Concurrent access is synchronized by the caller (node.Node's BlockLock,
// spec §5) — Chain itself also guards its own read/append path with an
// internal mutex so it is safe to use standalone (e.g. from tests).
type Chain struct {
	mu      sync.RWMutex
	blocks  []*block.Block
	hashSet map[string]struct{}
}

// New creates a chain whose only block is genesis.
func New(genesis *block.Block) *Chain {
	c := &Chain{
		blocks:  []*block.Block{genesis},
		hashSet: map[string]struct{}{genesis.Hash: {}},
	}
	return c
}

// Append adds b to the end of the chain and indexes its hash.
func (c *Chain) Append(b *block.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, b)
	c.hashSet[b.Hash] = struct{}{}
	log.Debugf("chain: appended block %d (%s), %d transactions", b.Index, b.Hash, len(b.Transactions))
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Block returns the block at index i.
func (c *Chain) Block(i int) (*block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.blocks) {
		return nil, false
	}
	return c.blocks[i], true
}

// Head returns the last block in the chain.
func (c *Chain) Head() *block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// GetBlockHash returns the hash of the block at index i, accepting negative
// indexing for "last block" (spec §4.4: "get_block_hash(i) accepts
// negative indexing for 'last block'").
func (c *Chain) GetBlockHash(i int) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := i
	if idx < 0 {
		idx = len(c.blocks) + idx
	}
	if idx < 0 || idx >= len(c.blocks) {
		return "", fmt.Errorf("chain: index %d out of range (len %d)", i, len(c.blocks))
	}
	return c.blocks[idx].Hash, nil
}

// HasHash reports whether hash belongs to any block in the chain — the O(1)
// ancestry test of spec §3.
func (c *Chain) HasHash(hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.hashSet[hash]
	return ok
}

// SetOfTransactions returns the order-preserving union of every transaction
// across every block, used during fork-switch set-difference computations
// (spec §4.4, §4.5.8, §4.5.10).
func (c *Chain) SetOfTransactions() []*txn.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*txn.Transaction
	for _, b := range c.blocks {
		out = append(out, b.Transactions...)
	}
	return out
}

// Blocks returns a snapshot slice of every block in the chain, in order.
func (c *Chain) Blocks() []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}
