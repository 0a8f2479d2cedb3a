package txn

import (
	"errors"
	"fmt"

	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// ErrInvalidTransaction covers every reason a transaction can be rejected
// under spec §4.1/§7: bad signature, duplicate inputs, output/id mismatch,
// negative amount, or a failed check-and-consume against the sender's
// wallet. Per spec §7 this is never propagated past the node engine; it is
// returned here so the caller can decide whether to log it at debug level.
var ErrInvalidTransaction = errors.New("txn: invalid transaction")

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransaction, reason)
}

// hasDuplicateInputs reports whether ids contains a repeated digest (spec
// §4.1: "inputs has no duplicates").
func hasDuplicateInputs(ids []ncrypto.Digest) bool {
	seen := make(map[ncrypto.Digest]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// Validate checks t against senderWallet — the sender's entry in whichever
// ring the caller is validating against (ring_live for incoming
// transactions, ring_bak while replaying a block, spec §4.1/§4.5.7) — and,
// on success, atomically consumes its inputs from that wallet. It performs,
// in order:
//
//  1. signature verifies under t.Sender;
//  2. t.Inputs has no duplicates;
//  3. every output's TxID equals t.ID;
//  4. every output amount is non-negative;
//  5. senderWallet.CheckAndConsume(t.Inputs, Σoutputs) succeeds.
//
// senderWallet is mutated only on full success; on any earlier failure
// nothing is touched.
func Validate(t *Transaction, senderWallet *wallet.Wallet) error {
	if !ncrypto.Verify(t.Sender, t.ID, t.Signature) {
		return invalid("signature does not verify")
	}
	if hasDuplicateInputs(t.Inputs) {
		return invalid("duplicate inputs")
	}
	var total int64
	for i, o := range t.Outputs {
		if o.TxID != t.ID {
			return invalid(fmt.Sprintf("output %d carries a foreign tx_id", i))
		}
		if o.Amount < 0 {
			return invalid(fmt.Sprintf("output %d has a negative amount", i))
		}
		total += o.Amount
	}
	if !senderWallet.CheckAndConsume(t.Inputs, total) {
		return invalid("check-and-consume failed (double-spend or insufficient inputs)")
	}
	return nil
}

// ApplyOutputs credits every output of t into its receiving wallet, found
// via lookup. This is the "apply T's outputs to the ring" step used after a
// transaction validates (spec §4.5.1 step 2, §4.5.2 step 3, §4.5.8 step 4).
func ApplyOutputs(t *Transaction, lookup func(ncrypto.PublicKey) (*wallet.Wallet, bool)) error {
	for i, o := range t.Outputs {
		w, ok := lookup(o.Receiver)
		if !ok {
			return fmt.Errorf("txn: apply outputs: output %d names unknown receiver %s", i, o.Receiver)
		}
		w.AddUTXO(o)
	}
	return nil
}
