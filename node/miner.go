package node

import (
	"context"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/metrics"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// maybeStartMiner starts a miner worker if tx_queue has reached capacity
// and none is already running (spec §4.5.1 step 4, §4.5.2 step 4, §4.5.3).
// The caller must already hold txMu, since it reads tx_queue's length.
func (n *Node) maybeStartMiner() {
	if len(n.txQueue) >= n.cfg.Capacity {
		n.startMinerIfIdle()
	}
}

// startMinerIfIdle is mine_block() of spec §4.5.5: a no-op if a miner
// handle is already live, otherwise it launches exactly one worker and
// records its cancel func. It touches only minerMu, the miner handle's own
// leaf lock, so it may be called regardless of whether the caller currently
// holds blockMu, txMu, both, or neither.
func (n *Node) startMinerIfIdle() {
	n.minerMu.Lock()
	if n.minerCancel != nil {
		n.minerMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.minerGen++
	gen := n.minerGen
	n.minerCancel = cancel
	n.minerMu.Unlock()

	go n.mineWorker(ctx, gen)
}

// killMiner is kill_miner() of spec §4.5.5: forcible, fire-and-forget
// cancellation. It does not wait for the worker to observe the
// cancellation — a worker that has already posted its self-mined-block
// message is handled idempotently by selfMinedBlockArrival's head check.
func (n *Node) killMiner() {
	n.minerMu.Lock()
	defer n.minerMu.Unlock()
	if n.minerCancel != nil {
		n.minerCancel()
	}
	n.minerCancel = nil
}

// clearMinerHandleIfCurrent clears the miner handle only if gen is still
// the generation that was live when this worker started — it guards
// against an aborted worker clobbering a newer miner's handle in the race
// between cancellation and the worker observing it.
func (n *Node) clearMinerHandleIfCurrent(gen uint64) {
	n.minerMu.Lock()
	defer n.minerMu.Unlock()
	if n.minerGen == gen {
		n.minerCancel = nil
	}
}

// mineWorker is the background miner of spec §4.5.4: it snapshots the head
// of tx_queue and the current chain head, assembles a block extending that
// head, mines it, and delivers it back as a self-mined block. Grounded in
// shape on the geth-lineage miner.worker pattern of
// maxbibeau-go-quai/core/worker.go and DATxChain-Protocol-DATx/miner/worker.go.
func (n *Node) mineWorker(ctx context.Context, gen uint64) {
	n.blockMu.Lock()
	headHash := n.blockchain.Head().Hash
	index := n.blockchain.Len()
	n.blockMu.Unlock()

	n.txMu.Lock()
	if len(n.txQueue) < n.cfg.Capacity {
		n.txMu.Unlock()
		n.clearMinerHandleIfCurrent(gen)
		return
	}
	batch := append([]*txn.Transaction(nil), n.txQueue[:n.cfg.Capacity]...)
	n.txMu.Unlock()

	b := block.New(index, headHash, n.cfg.Capacity)
	b.AddTransactions(batch)

	if err := b.Mine(ctx, n.cfg.Difficulty); err != nil {
		n.clearMinerHandleIfCurrent(gen)
		return
	}

	if n.selfMinedBlockArrival(b) && n.transport != nil {
		n.transport.BroadcastBlock(ctx, b.ToWire())
	}
}

// SelfMinedBlock is the core call behind the self_mined_block endpoint
// (spec §4.7): it delivers a block this peer mined. The return value
// reports whether it was stored — if so, the caller broadcasts it.
func (n *Node) SelfMinedBlock(b *block.Block) bool {
	return n.selfMinedBlockArrival(b)
}

// selfMinedBlockArrival implements spec §4.5.6, entirely under BlockLock:
//
//  1. clear the miner handle, allowing the next mining cycle;
//  2. if b extends the current head, pop the first capacity transactions
//     from tx_queue, apply them to ring_bak exactly as ring_live was
//     updated when they were first accepted, and append b to the chain;
//  3. otherwise we lost the race: discard b without rewinding tx_queue —
//     whatever external block preempted us already handled the delta
//     (spec §4.5.8);
//  4. if tx_queue is still at or above capacity, start another miner.
func (n *Node) selfMinedBlockArrival(b *block.Block) bool {
	n.blockMu.Lock()
	defer n.blockMu.Unlock()

	n.minerMu.Lock()
	n.minerCancel = nil
	n.minerMu.Unlock()

	head := n.blockchain.Head()
	if b.PreviousHash != head.Hash {
		n.txMu.Lock()
		startAnother := len(n.txQueue) >= n.cfg.Capacity
		n.txMu.Unlock()
		if startAnother {
			n.startMinerIfIdle()
		}
		return false
	}

	n.txMu.Lock()
	popped := b.Transactions
	if len(popped) > len(n.txQueue) {
		popped = n.txQueue
	}
	n.txQueue = append([]*txn.Transaction(nil), n.txQueue[len(popped):]...)
	for _, t := range popped {
		senderWallet, ok := n.ringBak.WalletForKey(t.Sender)
		if !ok {
			continue
		}
		if !senderWallet.CheckAndConsume(t.Inputs, t.TotalOutput()) {
			log.Errorf("node: mined block references transaction %s that ring_bak cannot consume", t.ID)
			continue
		}
		if err := txn.ApplyOutputs(t, n.ringBak.WalletForKey); err != nil {
			log.Errorf("node: mined block transaction %s: %v", t.ID, err)
		}
	}
	n.blockchain.Append(b)
	metrics.BlocksMined.Inc()
	startAnother := len(n.txQueue) >= n.cfg.Capacity
	n.txMu.Unlock()

	if startAnother {
		n.startMinerIfIdle()
	}
	return true
}
