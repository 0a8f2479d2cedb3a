package block

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
)

func newGenesisTx(t *testing.T) *txn.Transaction {
	t.Helper()
	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	tr, err := txn.NewGenesis(kp.Public, 100)
	require.NoError(t, err)
	return tr
}

func TestMineProducesHashBelowTarget(t *testing.T) {
	b := New(1, "deadbeef", 5)
	b.AddTransactions([]*txn.Transaction{newGenesisTx(t)})

	require.NoError(t, b.Mine(context.Background(), 1))
	require.True(t, b.ValidateHash(1))
	require.NotZero(t, b.Nonce)
	require.False(t, b.Timestamp.IsZero())
}

func TestMineAbortsOnCancellation(t *testing.T) {
	b := New(1, "deadbeef", 5)
	b.AddTransactions([]*txn.Transaction{newGenesisTx(t)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Mine(ctx, 40)
	require.ErrorIs(t, err, ErrMiningAborted)
}

func TestValidateHashRejectsTamperedNonce(t *testing.T) {
	b := New(1, "deadbeef", 5)
	b.AddTransactions([]*txn.Transaction{newGenesisTx(t)})
	require.NoError(t, b.Mine(context.Background(), 1))

	b.Nonce++
	require.False(t, b.ValidateHash(1))
}

func TestValidateHashRejectsInsufficientDifficulty(t *testing.T) {
	b := New(1, "deadbeef", 5)
	b.AddTransactions([]*txn.Transaction{newGenesisTx(t)})
	require.NoError(t, b.Mine(context.Background(), 1))

	require.False(t, b.ValidateHash(HashBits-1))
}

func TestAddTransactionsReturnsNewLength(t *testing.T) {
	b := New(1, "deadbeef", 5)
	n := b.AddTransactions([]*txn.Transaction{newGenesisTx(t), newGenesisTx(t)})
	require.Equal(t, 2, n)
}

func TestGenesisBlockCarriesSentinelHashes(t *testing.T) {
	tr := newGenesisTx(t)
	g := Genesis(tr, 5)

	require.True(t, g.IsGenesis())
	require.Equal(t, GenesisPreviousHash, g.PreviousHash)
	require.Equal(t, GenesisHash, g.Hash)
}

func TestWireRoundTrip(t *testing.T) {
	b := New(1, "deadbeef", 5)
	b.AddTransactions([]*txn.Transaction{newGenesisTx(t)})
	require.NoError(t, b.Mine(context.Background(), 1))

	back, err := FromWire(b.ToWire(), 5)
	require.NoError(t, err)
	require.Equal(t, b.Hash, back.Hash)
	require.Equal(t, b.Nonce, back.Nonce)
	require.True(t, back.ValidateHash(1))
	require.Equal(t, b.Timestamp.Unix(), back.Timestamp.Unix())
	require.WithinDuration(t, b.Timestamp, back.Timestamp, time.Second)
}
