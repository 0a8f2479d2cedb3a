package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

func newFundedWallet(t *testing.T, amount int64) (*wallet.Wallet, *ncrypto.KeyPair) {
	t.Helper()
	kp, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	w := wallet.New(kp.Public, kp.Private, "127.0.0.1:5000")
	genesis, err := NewGenesis(kp.Public, amount)
	require.NoError(t, err)
	w.AddUTXO(genesis.Outputs[0])
	return w, kp
}

func TestNewTransactionProducesChangeOutputAndValidSignature(t *testing.T) {
	sender, _ := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	tr, err := New(sender, receiverKP.Public, 30)
	require.NoError(t, err)

	require.True(t, ncrypto.Verify(tr.Sender, tr.ID, tr.Signature))
	require.Len(t, tr.Outputs, 2)
	require.Equal(t, int64(30), tr.Outputs[0].Amount)
	require.Equal(t, int64(70), tr.Outputs[1].Amount)
	require.Equal(t, int64(100), tr.TotalOutput())
}

func TestNewTransactionExactAmountHasNoChangeOutput(t *testing.T) {
	sender, _ := newFundedWallet(t, 50)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	tr, err := New(sender, receiverKP.Public, 50)
	require.NoError(t, err)
	require.Len(t, tr.Outputs, 1)
}

func TestNewTransactionInsufficientFunds(t *testing.T) {
	sender, _ := newFundedWallet(t, 10)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	_, err = New(sender, receiverKP.Public, 1000)
	require.Error(t, err)
}

func TestWireRoundTrip(t *testing.T) {
	sender, _ := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	tr, err := New(sender, receiverKP.Public, 40)
	require.NoError(t, err)

	w := tr.ToWire()
	back, err := FromWire(w)
	require.NoError(t, err)
	require.True(t, tr.Equal(back))
	require.Equal(t, tr.ID, back.ID)
}

func TestFromWireRejectsTamperedOutput(t *testing.T) {
	sender, _ := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	tr, err := New(sender, receiverKP.Public, 40)
	require.NoError(t, err)

	w := tr.ToWire()
	w.Outputs[0].Amount = 999999

	_, err = FromWire(w)
	require.Error(t, err)
}

func TestValidateRejectsBadSignature(t *testing.T) {
	sender, senderKP := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	tr, err := New(sender, receiverKP.Public, 40)
	require.NoError(t, err)

	otherKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	badSig, err := ncrypto.Sign(otherKP.Private, tr.ID)
	require.NoError(t, err)
	tr.Signature = badSig

	require.ErrorIs(t, Validate(tr, sender), ErrInvalidTransaction)
	_ = senderKP
}

func TestValidateRejectsDoubleSpend(t *testing.T) {
	sender, _ := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	tr, err := New(sender, receiverKP.Public, 100)
	require.NoError(t, err)

	// New's call to GetSufficientUTXOs already removed the spent UTXO from
	// sender's wallet, so replaying the same transaction against it must
	// fail check-and-consume.
	err = Validate(tr, sender)
	require.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestApplyOutputsCreditsReceiver(t *testing.T) {
	sender, _ := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)
	receiverWallet := wallet.New(receiverKP.Public, nil, "127.0.0.1:5001")

	tr, err := New(sender, receiverKP.Public, 40)
	require.NoError(t, err)

	lookup := func(pub ncrypto.PublicKey) (*wallet.Wallet, bool) {
		if pub.Equal(receiverKP.Public) {
			return receiverWallet, true
		}
		if pub.Equal(sender.PublicKey()) {
			return sender, true
		}
		return nil, false
	}
	require.NoError(t, ApplyOutputs(tr, lookup))
	require.Equal(t, int64(40), receiverWallet.Balance())
}

func TestNewBogusDoesNotConsumeSenderUTXOs(t *testing.T) {
	sender, _ := newFundedWallet(t, 100)
	receiverKP, err := ncrypto.GenerateKeyPair()
	require.NoError(t, err)

	before := sender.Balance()
	tr, err := NewBogus(sender, receiverKP.Public, 999999)
	require.NoError(t, err)

	require.Equal(t, before, sender.Balance())
	require.True(t, ncrypto.Verify(tr.Sender, tr.ID, tr.Signature))

	// Validate must reject it: the claimed total vastly exceeds what the
	// (still fully funded) inputs actually sum to.
	require.ErrorIs(t, Validate(tr, sender), ErrInvalidTransaction)
}
