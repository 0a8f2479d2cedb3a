package node

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/metrics"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// BlockOutcome reports what receiving or resolving a block actually did —
// the status value spec §7 requires every core entry point return instead
// of raising.
type BlockOutcome int

const (
	// BlockRejected: the block extended the current head but failed
	// validation (or could not be decoded).
	BlockRejected BlockOutcome = iota
	// BlockAccepted: the block extended the current head and was appended.
	BlockAccepted
	// BlockStale: the block names a previous_hash already present in the
	// chain but not the current head — an old or duplicate announcement,
	// ignored.
	BlockStale
	// BlockForkKept: fork resolution ran and this peer's chain is
	// unchanged — no peer offered a strictly longer chain, or the longest
	// one could not be fetched or failed validation.
	BlockForkKept
	// BlockForkSwitched: fork resolution adopted a strictly longer, valid
	// chain from another peer.
	BlockForkSwitched
)

// resolveWorkers bounds fan-out concurrency for length polling, spec §5:
// "Broadcast fan-out is parallel with a small fixed worker count (~3)".
const resolveWorkers = 3

// ReceiveBlock implements spec §4.5.8, the external-block-arrival operation:
//
//  1. if b extends the current head, validate its proof of work and
//     transactions against ring_bak, and on success commit it under nested
//     BlockLock+TxLock: kill the miner, append the block, and reconcile
//     tx_queue against the committed transaction set;
//  2. if b names a previous_hash already present in the chain but not the
//     head, it is stale and ignored;
//  3. otherwise this is a fork: every lock is released before
//     ResolveConflicts runs, since it performs network I/O and spec §5
//     forbids that while holding a lock.
func (n *Node) ReceiveBlock(ctx context.Context, w block.Wire) BlockOutcome {
	b, err := block.FromWire(w, n.cfg.Capacity)
	if err != nil {
		return BlockRejected
	}

	n.blockMu.Lock()
	head := n.blockchain.Head()
	if b.PreviousHash != head.Hash {
		stale := n.blockchain.HasHash(b.PreviousHash)
		n.blockMu.Unlock()
		if stale {
			return BlockStale
		}
		return n.ResolveConflicts(ctx)
	}

	working, ok := validProof(b, n.cfg.Difficulty, n.ringBak)
	if !ok {
		n.blockMu.Unlock()
		return BlockRejected
	}
	n.ringBak = working
	n.killMiner()
	n.blockchain.Append(b)

	n.txMu.Lock()
	n.reconcileTxQueueLocked(b.Transactions)
	n.txMu.Unlock()
	n.blockMu.Unlock()

	return BlockAccepted
}

// reconcileTxQueueLocked implements the mempool reconciliation of spec
// §4.5.8 step 4: tx_queue becomes Q - S, the transactions that were queued
// but did not make it into the accepted block. Every transaction in S that
// was not already in Q is credited into ring_live without being
// re-enqueued — it is already settled on-chain. Caller must hold txMu.
func (n *Node) reconcileTxQueueLocked(committed []*txn.Transaction) {
	inQueue := make(map[ncrypto.Digest]struct{}, len(n.txQueue))
	for _, t := range n.txQueue {
		inQueue[t.ID] = struct{}{}
	}
	inBlock := make(map[ncrypto.Digest]struct{}, len(committed))
	for _, t := range committed {
		inBlock[t.ID] = struct{}{}
	}

	var remaining []*txn.Transaction
	for _, t := range n.txQueue {
		if _, dup := inBlock[t.ID]; !dup {
			remaining = append(remaining, t)
		}
	}
	n.txQueue = remaining
	metrics.MempoolDepth.Set(float64(len(n.txQueue)))

	for _, t := range committed {
		if t.Sender.IsGenesis() {
			continue
		}
		if _, already := inQueue[t.ID]; already {
			continue
		}
		senderWallet, ok := n.ringLive.WalletForKey(t.Sender)
		if !ok {
			continue
		}
		if err := txn.Validate(t, senderWallet); err != nil {
			continue
		}
		if err := txn.ApplyOutputs(t, n.ringLive.WalletForKey); err != nil {
			log.Errorf("node: reconcile: transaction %s validated but could not apply outputs: %v", t.ID, err)
		}
	}
}

// ResolveConflicts implements spec §4.5.10: poll every known peer's chain
// length with bounded concurrency, entirely without holding a lock. If no
// peer reports a chain strictly longer than this one, the local chain is
// kept. Otherwise the longest chain is fetched (ties broken by lowest node
// id) and validated end to end; on success it is adopted under nested
// BlockLock+TxLock and the mempools are reconciled against it.
func (n *Node) ResolveConflicts(ctx context.Context) BlockOutcome {
	addrs := n.transport.Addresses()
	ids := make([]int, 0, len(addrs))
	for id := range addrs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	lengths := make([]int, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for i, id := range ids {
		i, addr := i, addrs[id]
		g.Go(func() error {
			lengths[i] = n.transport.Length(gctx, addr)
			return nil
		})
	}
	_ = g.Wait() // Length never errors; it maps an unreachable peer to 0 (spec §7 TransportFailure).

	ownLen := n.blockchain.Len()
	bestID, bestLen := -1, ownLen
	for i, id := range ids {
		length := lengths[i]
		if length <= ownLen {
			continue
		}
		if bestID == -1 || length > bestLen || (length == bestLen && id < bestID) {
			bestID, bestLen = id, length
		}
	}
	if bestID == -1 {
		metrics.ForkResolutions.WithLabelValues("kept").Inc()
		return BlockForkKept
	}

	wireChain, ok := n.transport.FetchBlockchain(ctx, addrs[bestID])
	if !ok {
		cnsnLog.Warnf("node: fork resolution: peer %d reported length %d but did not answer /blockchain", bestID, bestLen)
		metrics.ForkResolutions.WithLabelValues("kept").Inc()
		return BlockForkKept
	}

	n.txMu.Lock()
	identityRing := n.ringLive.FreshIdentityClone()
	n.txMu.Unlock()

	newChain, newRing, ok := validChain(wireChain, identityRing, n.cfg.Capacity, n.cfg.Difficulty)
	if !ok {
		cnsnLog.Warnf("node: fork resolution: peer %d's chain of length %d failed validation", bestID, bestLen)
		metrics.ForkResolutions.WithLabelValues("kept").Inc()
		return BlockForkKept
	}

	n.blockMu.Lock()
	defer n.blockMu.Unlock()
	n.killMiner()

	n.txMu.Lock()
	defer n.txMu.Unlock()

	inNew := make(map[ncrypto.Digest]struct{})
	for _, t := range newChain.SetOfTransactions() {
		inNew[t.ID] = struct{}{}
	}
	// D = (old_blockchain.tx_set ∪ tx_queue ∪ unprocessed_queue) − new_blockchain.tx_set,
	// order-preserving (spec §4.5.10 step 5).
	candidates := append(n.blockchain.SetOfTransactions(), n.txQueue...)
	candidates = append(candidates, n.unprocessedQueue...)

	n.blockchain = newChain
	n.ringBak = newRing
	n.ringLive = newRing.Clone()

	seen := make(map[ncrypto.Digest]struct{}, len(candidates))
	var d []*txn.Transaction
	for _, t := range candidates {
		if _, dup := inNew[t.ID]; dup {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		d = append(d, t)
	}
	n.txQueue = nil
	n.unprocessedQueue = d
	n.processUnprocessedLocked()

	cnsnLog.Infof("node: fork resolution: switched to peer %d's chain (length %d, was %d)", bestID, bestLen, ownLen)
	metrics.ForkResolutions.WithLabelValues("switched").Inc()
	metrics.MempoolDepth.Set(float64(len(n.txQueue)))

	return BlockForkSwitched
}
