package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// fakeTransport is a no-op node.PeerTransport recorder, standing in for
// transport/httpapi.Client in tests that never actually need the network.
type fakeTransport struct {
	mu             sync.Mutex
	addrs          map[int]string
	lengths        map[int]int
	blocks         []block.Wire
	transactions   []txn.Wire
	blockchainByID map[int]chain.Wire
	lengthsByAddr  map[string]int
	chainsByAddr   map[string]chain.Wire
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		addrs:          make(map[int]string),
		lengths:        make(map[int]int),
		blockchainByID: make(map[int]chain.Wire),
	}
}

func (f *fakeTransport) Addresses() map[int]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]string, len(f.addrs))
	for k, v := range f.addrs {
		out[k] = v
	}
	return out
}

func (f *fakeTransport) Length(ctx context.Context, peerAddr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lengthsByAddr != nil {
		return f.lengthsByAddr[peerAddr]
	}
	return f.lengths[0]
}

func (f *fakeTransport) FetchBlockchain(ctx context.Context, peerAddr string) (chain.Wire, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.chainsByAddr[peerAddr]
	return w, ok
}

func (f *fakeTransport) setPeerChain(addr string, length int, w chain.Wire) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lengthsByAddr == nil {
		f.lengthsByAddr = make(map[string]int)
	}
	if f.chainsByAddr == nil {
		f.chainsByAddr = make(map[string]chain.Wire)
	}
	f.lengthsByAddr[addr] = length
	f.chainsByAddr[addr] = w
}

func (f *fakeTransport) BroadcastTransaction(ctx context.Context, w txn.Wire) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, w)
}

func (f *fakeTransport) BroadcastBlock(ctx context.Context, w block.Wire) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, w)
}

func (f *fakeTransport) BroadcastWallets(ctx context.Context, wallets map[int]wallet.Info) {}

func (f *fakeTransport) broadcastBlockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blocks)
}

func testConfig(capacity, difficulty, nodes int, bootstrap bool) Config {
	return Config{Capacity: capacity, Difficulty: difficulty, Nodes: nodes, Bootstrap: bootstrap}
}

func TestNewBootstrapMintsGenesisSupply(t *testing.T) {
	cfg := testConfig(5, 2, 3, true)
	n, kp, err := NewBootstrap(cfg, "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)
	require.NotNil(t, kp)

	bal, ok := n.Balance(0)
	require.True(t, ok)
	require.Equal(t, cfg.GenesisSupply(), bal)
	require.Equal(t, 1, n.Blockchain().Len())
}

func TestRegisterNodeIsIdempotent(t *testing.T) {
	n, _, err := NewBootstrap(testConfig(5, 2, 3, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	id1, _, err := n.RegisterNode(kp.Public, "127.0.0.1:5001")
	require.NoError(t, err)

	id2, _, err := n.RegisterNode(kp.Public, "127.0.0.1:5001")
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestRegisterNodeAssignsSequentialIDsAndCompletesRing(t *testing.T) {
	n, _, err := NewBootstrap(testConfig(5, 2, 2, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)
	require.False(t, n.RingComplete())

	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	id, _, err := n.RegisterNode(kp.Public, "127.0.0.1:5001")
	require.NoError(t, err)
	require.Equal(t, 1, id)
	require.True(t, n.RingComplete())
}

func TestReadyForFanOutFiresExactlyOnce(t *testing.T) {
	n, _, err := NewBootstrap(testConfig(5, 2, 2, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	_, _, err = n.RegisterNode(kp.Public, "127.0.0.1:5001")
	require.NoError(t, err)

	infos, ok := n.ReadyForFanOut()
	require.True(t, ok)
	require.Len(t, infos, 2)

	_, ok = n.ReadyForFanOut()
	require.False(t, ok)
}

func TestInitialDistributionSkipsSelf(t *testing.T) {
	n, _, err := NewBootstrap(testConfig(5, 2, 2, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	_, _, err = n.RegisterNode(kp.Public, "127.0.0.1:5001")
	require.NoError(t, err)

	txs, err := n.InitialDistribution(100)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.True(t, txs[0].Receiver.Equal(kp.Public))
}

func TestApplyWalletsPreservesOwnPrivateWallet(t *testing.T) {
	n, kp, err := NewBootstrap(testConfig(5, 2, 2, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	otherKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	infos := map[int]wallet.Info{
		0: {PublicKey: kp.Public, Address: "127.0.0.1:5000"},
		1: {PublicKey: otherKP.Public, Address: "127.0.0.1:5001"},
	}
	n.ApplyWallets(infos)

	require.NotNil(t, n.MyWallet().PrivateKey())
	require.True(t, n.RingComplete())
}

func TestCreateTransactionQueuesAndStartsMinerAtCapacity(t *testing.T) {
	transport := newFakeTransport()
	n, _, err := NewBootstrap(testConfig(1, 1, 2, true), "127.0.0.1:5000", transport)
	require.NoError(t, err)

	otherKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	_, _, err = n.RegisterNode(otherKP.Public, "127.0.0.1:5001")
	require.NoError(t, err)

	_, err = n.CreateTransaction(otherKP.Public, 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return n.Blockchain().Len() == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return transport.broadcastBlockCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReceiveTransactionRejectsUnknownSender(t *testing.T) {
	n, _, err := NewBootstrap(testConfig(5, 2, 2, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	strangerKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	strangerWallet := wallet.New(strangerKP.Public, strangerKP.Private, "127.0.0.1:9999")
	genesisTx, err := txn.NewGenesis(strangerKP.Public, 10)
	require.NoError(t, err)
	strangerWallet.AddUTXO(genesisTx.Outputs[0])

	tr, err := txn.New(strangerWallet, strangerKP.Public, 5)
	require.NoError(t, err)

	n.ReceiveTransaction(tr)
	require.Equal(t, 0, n.TxQueueLen())
}

func TestReceiveTransactionQueuesWhenRingIncomplete(t *testing.T) {
	cfg := testConfig(5, 2, 3, false)
	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	ring := NewRing()
	ring.Set(1, wallet.New(kp.Public, kp.Private, "127.0.0.1:5001"))

	genesisKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	genesisTx, err := txn.NewGenesis(genesisKP.Public, 500)
	require.NoError(t, err)
	genesisChain := chain.New(block.Genesis(genesisTx, cfg.Capacity))

	n, err := New(cfg, 1, ring, genesisChain, newFakeTransport())
	require.NoError(t, err)
	require.False(t, n.RingComplete())

	otherKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	tr, err := txn.NewGenesis(otherKP.Public, 10)
	require.NoError(t, err)

	n.ReceiveTransaction(tr)
	require.Equal(t, 0, n.TxQueueLen())
	require.Equal(t, 1, n.UnprocessedQueueLen())
}

func TestMarkRingCompleteProcessesUnprocessed(t *testing.T) {
	cfg := testConfig(5, 2, 3, false)
	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	ring := NewRing()
	ring.Set(1, wallet.New(kp.Public, kp.Private, "127.0.0.1:5001"))

	bootstrapKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	genesisTx, err := txn.NewGenesis(bootstrapKP.Public, 500)
	require.NoError(t, err)
	bootstrapInRing := wallet.New(bootstrapKP.Public, nil, "127.0.0.1:5000")
	bootstrapInRing.AddUTXO(genesisTx.Outputs[0])
	ring.Set(0, bootstrapInRing)
	genesisChain := chain.New(block.Genesis(genesisTx, cfg.Capacity))

	n, err := New(cfg, 1, ring, genesisChain, newFakeTransport())
	require.NoError(t, err)

	bootstrapWallet := wallet.New(bootstrapKP.Public, bootstrapKP.Private, "127.0.0.1:5000")
	bootstrapWallet.AddUTXO(genesisTx.Outputs[0])
	tr, err := txn.New(bootstrapWallet, kp.Public, 50)
	require.NoError(t, err)

	// Ring is not yet complete (cfg.Nodes is 3, only 2 wallets are set), so
	// the transaction queues up in unprocessed_queue.
	n.ReceiveTransaction(tr)
	require.Equal(t, 1, n.UnprocessedQueueLen())

	n.MarkRingComplete()
	require.Equal(t, 0, n.UnprocessedQueueLen())
	require.Equal(t, 1, n.TxQueueLen())
}

// remoteBootstrapWallet builds an independent copy of the bootstrap peer's
// wallet, funded with the genesis UTXO, standing in for the remote peer
// that mined a block — the local node's rings stay untouched until the
// block actually arrives.
func remoteBootstrapWallet(n *Node, kp *ncrypto.KeyPair) *wallet.Wallet {
	genesisTx := n.Blockchain().Blocks()[0].Transactions[0]
	w := wallet.New(kp.Public, kp.Private, "127.0.0.1:5000")
	w.AddUTXO(genesisTx.Outputs[0])
	return w
}

func TestReceiveBlockAcceptsValidExtension(t *testing.T) {
	transport := newFakeTransport()
	cfg := testConfig(5, 1, 2, true)
	n, kp, err := NewBootstrap(cfg, "127.0.0.1:5000", transport)
	require.NoError(t, err)

	peerKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	_, _, err = n.RegisterNode(peerKP.Public, "127.0.0.1:5001")
	require.NoError(t, err)

	head := n.Blockchain().Head()
	tr, err := txn.New(remoteBootstrapWallet(n, kp), peerKP.Public, 10)
	require.NoError(t, err)

	b := block.New(1, head.Hash, 5)
	b.AddTransactions([]*txn.Transaction{tr})
	require.NoError(t, b.Mine(context.Background(), 1))

	outcome := n.ReceiveBlock(context.Background(), b.ToWire())
	require.Equal(t, BlockAccepted, outcome)
	require.Equal(t, 2, n.Blockchain().Len())

	peerBal, ok := n.Balance(1)
	require.True(t, ok)
	require.Equal(t, int64(10), peerBal)
	bootBal, ok := n.Balance(0)
	require.True(t, ok)
	require.Equal(t, int64(190), bootBal)

	// Coin supply is conserved across the on-chain ring.
	require.Equal(t, cfg.GenesisSupply(), n.ringBak.TotalBalance())
}

func TestReceiveBlockRejectsBadProof(t *testing.T) {
	n, _, err := NewBootstrap(testConfig(5, 1, 1, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	head := n.Blockchain().Head()
	b := block.New(1, head.Hash, 5)
	b.Hash = "not-a-real-hash"

	outcome := n.ReceiveBlock(context.Background(), b.ToWire())
	require.Equal(t, BlockRejected, outcome)
	require.Equal(t, 1, n.Blockchain().Len())
}

func TestReceiveBlockStaleIgnoresOldAnnouncement(t *testing.T) {
	n, kp, err := NewBootstrap(testConfig(5, 1, 2, true), "127.0.0.1:5000", newFakeTransport())
	require.NoError(t, err)

	peerKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	_, _, err = n.RegisterNode(peerKP.Public, "127.0.0.1:5001")
	require.NoError(t, err)

	genesisHash := n.Blockchain().Head().Hash

	tr1, err := txn.New(remoteBootstrapWallet(n, kp), peerKP.Public, 10)
	require.NoError(t, err)
	b1 := block.New(1, genesisHash, 5)
	b1.AddTransactions([]*txn.Transaction{tr1})
	require.NoError(t, b1.Mine(context.Background(), 1))
	require.Equal(t, BlockAccepted, n.ReceiveBlock(context.Background(), b1.ToWire()))

	tr2, err := txn.New(remoteBootstrapWallet(n, kp), peerKP.Public, 20)
	require.NoError(t, err)
	b2 := block.New(1, genesisHash, 5)
	b2.AddTransactions([]*txn.Transaction{tr2})
	require.NoError(t, b2.Mine(context.Background(), 1))

	// b2 is a competing block at a hash (genesis) already present in the
	// chain but that is no longer the head: a stale re-announcement.
	outcome := n.ReceiveBlock(context.Background(), b2.ToWire())
	require.Equal(t, BlockStale, outcome)
	require.Equal(t, 2, n.Blockchain().Len())
}

// TestResolveConflictsSwitchesToLongerChain exercises spec §4.5.10: a peer
// behind by one block discovers a peer reporting a strictly longer chain,
// fetches and validates it, and adopts it — reconciling tx_queue against the
// newly committed transaction set (spec §8 scenario S4).
func TestResolveConflictsSwitchesToLongerChain(t *testing.T) {
	cfg := testConfig(1, 1, 2, false)

	bootstrapKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	peerKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	genesisTx, err := txn.NewGenesis(bootstrapKP.Public, cfg.GenesisSupply())
	require.NoError(t, err)
	genesisBlock := block.Genesis(genesisTx, cfg.Capacity)

	buildRing := func() *Ring {
		r := NewRing()
		bw := wallet.New(bootstrapKP.Public, bootstrapKP.Private, "127.0.0.1:5000")
		bw.AddUTXO(genesisTx.Outputs[0])
		r.Set(0, bw)
		r.Set(1, wallet.New(peerKP.Public, peerKP.Private, "127.0.0.1:5001"))
		return r
	}

	// The ahead peer has mined a second block sending 10 from bootstrap to
	// the lagging peer.
	aheadRing := buildRing()
	tr, err := txn.New(aheadRing.wallets[0], peerKP.Public, 10)
	require.NoError(t, err)
	require.NoError(t, txn.ApplyOutputs(tr, aheadRing.WalletForKey))

	b1 := block.New(1, genesisBlock.Hash, cfg.Capacity)
	b1.AddTransactions([]*txn.Transaction{tr})
	require.NoError(t, b1.Mine(context.Background(), cfg.Difficulty))

	aheadChain := chain.New(genesisBlock)
	aheadChain.Append(b1)

	// The lagging peer only has genesis, plus an unrelated queued
	// transaction that never makes it into the ahead peer's chain.
	behindRing := buildRing()
	behindChain := chain.New(genesisBlock)
	transport := newFakeTransport()
	transport.addrs[0] = "127.0.0.1:5000"
	transport.setPeerChain("127.0.0.1:5000", aheadChain.Len(), aheadChain.ToWire())

	n, err := New(cfg, 1, behindRing, behindChain, transport)
	require.NoError(t, err)

	strangerKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	stray, err := txn.NewGenesis(strangerKP.Public, 5)
	require.NoError(t, err)
	n.unprocessedQueue = []*txn.Transaction{stray}

	outcome := n.ResolveConflicts(context.Background())
	require.Equal(t, BlockForkSwitched, outcome)
	require.Equal(t, 2, n.Blockchain().Len())

	bal, ok := n.Balance(1)
	require.True(t, ok)
	require.Equal(t, int64(10), bal)

	// stray's sender (the genesis sentinel key, which no wallet in the ring
	// carries) cannot validate against the new ring_live, so it is dropped rather than
	// resurrected into tx_queue; the unprocessed queue itself is drained.
	require.Equal(t, 0, n.UnprocessedQueueLen())
	require.Equal(t, 0, n.TxQueueLen())
}
