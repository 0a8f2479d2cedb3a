package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
)

func digest(b byte) ncrypto.Digest {
	var d ncrypto.Digest
	d[0] = b
	return d
}

func TestAddUTXOCreditsBalance(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 10})
	w.AddUTXO(UTXO{TxID: digest(2), Amount: 5})

	require.Equal(t, int64(15), w.Balance())
	require.Len(t, w.UTXOs(), 2)
}

func TestRemoveUTXOsDebitsBalanceAndErrorsOnUnknown(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 10})

	require.NoError(t, w.RemoveUTXOs([]ncrypto.Digest{digest(1)}))
	require.Equal(t, int64(0), w.Balance())

	err := w.RemoveUTXOs([]ncrypto.Digest{digest(99)})
	require.Error(t, err)
	var unknown *ErrUnknownUTXO
	require.ErrorAs(t, err, &unknown)
}

func TestCheckAndConsumeRejectsWrongSumWithoutMutating(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 10})

	require.False(t, w.CheckAndConsume([]ncrypto.Digest{digest(1)}, 5))
	// Nothing was consumed: balance and utxo are untouched.
	require.Equal(t, int64(10), w.Balance())
	require.Len(t, w.UTXOs(), 1)
}

func TestCheckAndConsumeAcceptsExactSumAndRemovesUTXOs(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 10})
	w.AddUTXO(UTXO{TxID: digest(2), Amount: 5})

	require.True(t, w.CheckAndConsume([]ncrypto.Digest{digest(1), digest(2)}, 15))
	require.Equal(t, int64(0), w.Balance())
	require.Empty(t, w.UTXOs())
}

func TestCheckAndConsumeRejectsDoubleSpend(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 10})

	require.True(t, w.CheckAndConsume([]ncrypto.Digest{digest(1)}, 10))
	require.False(t, w.CheckAndConsume([]ncrypto.Digest{digest(1)}, 10))
}

func TestGetSufficientUTXOsSelectsInInsertionOrderAndReturnsChange(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 4})
	w.AddUTXO(UTXO{TxID: digest(2), Amount: 4})
	w.AddUTXO(UTXO{TxID: digest(3), Amount: 4})

	selected, change, err := w.GetSufficientUTXOs(5)
	require.NoError(t, err)
	require.Equal(t, []ncrypto.Digest{digest(1), digest(2)}, selected)
	require.Equal(t, int64(3), change)

	// The two consumed UTXOs are gone, the third remains.
	require.Equal(t, int64(4), w.Balance())
}

func TestGetSufficientUTXOsInsufficientFunds(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 4})

	_, _, err := w.GetSufficientUTXOs(10)
	require.Error(t, err)
	var insufficient *ErrInsufficientFunds
	require.ErrorAs(t, err, &insufficient)
}

func TestCloneIsIndependentSnapshot(t *testing.T) {
	w := New(ncrypto.PublicKey{}, nil, "127.0.0.1:5000")
	w.AddUTXO(UTXO{TxID: digest(1), Amount: 10})

	c := w.Clone()
	w.AddUTXO(UTXO{TxID: digest(2), Amount: 5})

	require.Equal(t, int64(10), c.Balance())
	require.Equal(t, int64(15), w.Balance())
}
