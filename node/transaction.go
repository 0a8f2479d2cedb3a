package node

import (
	"fmt"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/metrics"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

// CreateTransaction implements the local-initiative create-transaction
// operation of spec §4.5.1, executed entirely under TxLock:
//
//  1. construct T with sender = self, failing if the local wallet cannot
//     cover amount;
//  2. apply T's outputs to ring_live;
//  3. append T to tx_queue;
//  4. start the miner if tx_queue has reached capacity.
//
// The caller is responsible for broadcasting the returned transaction
// outside of any lock (spec §4.5.1 step 5).
func (n *Node) CreateTransaction(receiver ncrypto.PublicKey, amount int64) (*txn.Transaction, error) {
	n.txMu.Lock()
	defer n.txMu.Unlock()

	t, err := txn.New(n.MyWallet(), receiver, amount)
	if err != nil {
		return nil, err
	}

	if err := txn.ApplyOutputs(t, n.ringLive.WalletForKey); err != nil {
		return nil, fmt.Errorf("node: create transaction: %w", err)
	}

	n.txQueue = append(n.txQueue, t)
	n.maybeStartMiner()
	metrics.MempoolDepth.Set(float64(len(n.txQueue)))

	return t, nil
}

// CreateBogusTransaction fabricates a transaction signed correctly by the
// local peer but requesting more than its wallet can cover, for exercising
// the double-spend/insufficient-funds rejection path end to end (spec §4.7
// "bogus_transaction", §8 scenario S6; restored from
// original_source/noobcash/node.py's create_bogus_transaction, dropped from
// spec.md's prose but explicitly named as a named endpoint in spec §4.7).
// It deliberately bypasses the local wallet's balance check, so it is
// expected to fail validation at every honest peer, including this one.
func (n *Node) CreateBogusTransaction(receiver ncrypto.PublicKey, amount int64) (*txn.Transaction, error) {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	return txn.NewBogus(n.MyWallet(), receiver, amount)
}

// ReceiveTransaction implements the receive-transaction operation of spec
// §4.5.2, executed entirely under TxLock:
//
//  1. if the ring is not yet complete and this peer is not bootstrap,
//     queue t for later and return;
//  2. validate t against ring_live, rejecting silently on failure;
//  3. credit t's outputs into ring_live and append it to tx_queue;
//  4. start the miner if tx_queue has reached capacity.
func (n *Node) ReceiveTransaction(t *txn.Transaction) {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	n.receiveTransactionLocked(t)
}

func (n *Node) receiveTransactionLocked(t *txn.Transaction) {
	if !n.ringComplete && !n.cfg.Bootstrap {
		n.unprocessedQueue = append(n.unprocessedQueue, t)
		return
	}

	senderWallet, ok := n.ringLive.WalletForKey(t.Sender)
	if !ok {
		log.Debugf("node: received transaction from unknown sender %s, rejecting", t.Sender)
		metrics.TransactionsRejected.Inc()
		return
	}
	if err := txn.Validate(t, senderWallet); err != nil {
		log.Debugf("node: rejecting transaction %s: %v", t.ID, err)
		metrics.TransactionsRejected.Inc()
		return
	}
	if err := txn.ApplyOutputs(t, n.ringLive.WalletForKey); err != nil {
		log.Errorf("node: transaction %s validated but could not apply outputs: %v", t.ID, err)
		return
	}

	n.txQueue = append(n.txQueue, t)
	n.maybeStartMiner()
	metrics.MempoolDepth.Set(float64(len(n.txQueue)))
}

// ProcessUnprocessed implements spec §4.5.3: called after the ring becomes
// complete or after a chain switch, it replays unprocessed_queue in order
// against the (possibly new) ring_live, applying every transaction that
// still validates, then clears the queue wholesale — the corrected form
// noted in spec §9 (process all, then clear; not the mid-iteration clear
// the reference implementation sometimes does).
func (n *Node) ProcessUnprocessed() {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	n.processUnprocessedLocked()
}

func (n *Node) processUnprocessedLocked() {
	pending := n.unprocessedQueue
	for _, t := range pending {
		senderWallet, ok := n.ringLive.WalletForKey(t.Sender)
		if !ok {
			continue
		}
		if err := txn.Validate(t, senderWallet); err != nil {
			continue
		}
		if err := txn.ApplyOutputs(t, n.ringLive.WalletForKey); err != nil {
			log.Errorf("node: unprocessed transaction %s validated but could not apply outputs: %v", t.ID, err)
			continue
		}
		n.txQueue = append(n.txQueue, t)
	}
	n.unprocessedQueue = nil
	n.maybeStartMiner()
	metrics.MempoolDepth.Set(float64(len(n.txQueue)))
}

// MarkRingComplete records that the ring now holds every peer's wallet
// (spec §4.6: "When the ring reaches N ..."), and processes any
// transactions that had queued up waiting for it.
func (n *Node) MarkRingComplete() {
	n.txMu.Lock()
	n.ringComplete = true
	n.txMu.Unlock()
	n.ProcessUnprocessed()
}
