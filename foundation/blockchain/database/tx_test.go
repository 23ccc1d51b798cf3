package database_test

import (
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	kennedyKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pavelKey   = "aed31b6b5a2cd4ab8e4fbd1ec2a6b4c7c8a71dd81fe1aa6cd7a4d7e3fc2b15c1"
)

func privateKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	return pk
}

func address(pk *ecdsa.PrivateKey) string {
	return signature.PublicKeyToAddress(pk.PublicKey)
}

// funded returns a set holding a single 50 unit output owned by the key.
func funded(pk *ecdsa.PrivateKey) (database.UTXOSet, database.OutPoint) {
	op := database.OutPoint{ID: signature.Hash([]byte("funding")), Index: 0}
	utxos := database.NewUTXOSet(database.UTXO{OutPoint: op, Address: address(pk), Amount: 50})

	return utxos, op
}

// spend builds and signs a transaction consuming the outpoints.
func spend(t *testing.T, pk *ecdsa.PrivateKey, utxos database.UTXOSet, ops []database.OutPoint, outs []database.TxOut) database.Tx {
	t.Helper()

	tx := database.NewTx(ops, outs)
	for i := range tx.Inputs {
		sig, err := database.SignInput(tx, i, pk, utxos)
		if err != nil {
			t.Fatalf("Should be able to sign input %d: %s", i, err)
		}
		tx.Inputs[i].Signature = sig
	}

	return tx
}

// =============================================================================

func Test_TxID(t *testing.T) {
	t.Log("Given the need to compute transaction ids.")
	{
		gen := genesis.Block()
		tx := gen.Trans[0]

		if got := database.ComputeTxID(tx); got != tx.ID {
			t.Logf("\t%s\tgot: %s", failed, got)
			t.Logf("\t%s\texp: %s", failed, tx.ID)
			t.Fatalf("\t%s\tShould reproduce the genesis transaction id.", failed)
		}
		t.Logf("\t%s\tShould reproduce the genesis transaction id.", success)

		pk := privateKey(t, kennedyKey)
		utxos, op := funded(pk)
		out := []database.TxOut{{Address: address(pk), Amount: 50}}

		signed := spend(t, pk, utxos, []database.OutPoint{op}, out)
		unsigned := database.NewTx([]database.OutPoint{op}, out)

		if signed.ID != unsigned.ID || database.ComputeTxID(signed) != unsigned.ID {
			t.Fatalf("\t%s\tShould compute the same id independent of signatures.", failed)
		}
		t.Logf("\t%s\tShould compute the same id independent of signatures.", success)

		other := database.NewTx([]database.OutPoint{op}, []database.TxOut{{Address: address(pk), Amount: 49}})
		if other.ID == unsigned.ID {
			t.Fatalf("\t%s\tShould compute a different id for different content.", failed)
		}
		t.Logf("\t%s\tShould compute a different id for different content.", success)
	}
}

func Test_TxValidate(t *testing.T) {
	kennedy := privateKey(t, kennedyKey)
	pavel := privateKey(t, pavelKey)
	utxos, op := funded(kennedy)

	valid := spend(t, kennedy, utxos, []database.OutPoint{op}, []database.TxOut{
		{Address: address(pavel), Amount: 20},
		{Address: address(kennedy), Amount: 30},
	})

	badID := valid.Clone()
	badID.ID = signature.Hash([]byte("other"))

	badAddress := database.NewTx([]database.OutPoint{op}, []database.TxOut{{Address: "04abc", Amount: 50}})

	noOutputs := database.NewTx([]database.OutPoint{op}, nil)

	missing := database.OutPoint{ID: signature.Hash([]byte("missing")), Index: 0}
	unresolved := database.NewTx([]database.OutPoint{missing}, []database.TxOut{{Address: address(pavel), Amount: 50}})

	wrongSigner := database.NewTx([]database.OutPoint{op}, []database.TxOut{{Address: address(pavel), Amount: 50}})
	sig, err := signature.Sign(wrongSigner.ID, pavel)
	if err != nil {
		t.Fatalf("Should be able to sign: %s", err)
	}
	wrongSigner.Inputs[0].Signature = sig

	mismatch := spend(t, kennedy, utxos, []database.OutPoint{op}, []database.TxOut{{Address: address(pavel), Amount: 60}})

	twice := spend(t, kennedy, utxos, []database.OutPoint{op, op}, []database.TxOut{{Address: address(pavel), Amount: 100}})

	type table struct {
		name string
		tx   database.Tx
		err  error
	}

	tt := []table{
		{"valid", valid, nil},
		{"badid", badID, database.ErrStructural},
		{"badaddress", badAddress, database.ErrStructural},
		{"nooutputs", noOutputs, database.ErrStructural},
		{"unresolved", unresolved, database.ErrUnresolvedInput},
		{"wrongsigner", wrongSigner, database.ErrSignature},
		{"mismatch", mismatch, database.ErrAmountMismatch},
		{"twice", twice, database.ErrDuplicateInput},
	}

	t.Log("Given the need to validate transactions against unspent outputs.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				err := tst.tx.Validate(utxos)

				switch tst.err {
				case nil:
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %s", failed, testID, err)
					}
				default:
					if !errors.Is(err, tst.err) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould reject the transaction with the right error.", failed, testID)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected outcome.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_SignInput(t *testing.T) {
	kennedy := privateKey(t, kennedyKey)
	pavel := privateKey(t, pavelKey)
	utxos, op := funded(kennedy)

	tx := database.NewTx([]database.OutPoint{op}, []database.TxOut{{Address: address(pavel), Amount: 50}})

	t.Log("Given the need to sign inputs only with the owning key.")
	{
		if _, err := database.SignInput(tx, 0, pavel, utxos); !errors.Is(err, database.ErrAuthorization) {
			t.Fatalf("\t%s\tShould refuse to sign with a key that does not own the output: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to sign with a key that does not own the output.", success)

		sig, err := database.SignInput(tx, 0, kennedy, utxos)
		if err != nil {
			t.Fatalf("\t%s\tShould sign with the owning key: %s", failed, err)
		}
		t.Logf("\t%s\tShould sign with the owning key.", success)

		if err := signature.Verify(tx.ID, sig, address(kennedy)); err != nil {
			t.Fatalf("\t%s\tShould produce a signature over the id: %s", failed, err)
		}
		t.Logf("\t%s\tShould produce a signature over the id.", success)

		if _, err := database.SignInput(tx, 1, kennedy, utxos); !errors.Is(err, database.ErrStructural) {
			t.Fatalf("\t%s\tShould reject an out of range input: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an out of range input.", success)
	}
}

func Test_Coinbase(t *testing.T) {
	addr := address(privateKey(t, kennedyKey))

	wrongAmount := database.NewCoinbaseTx(addr, 3)
	wrongAmount.Outputs[0].Amount = 51
	wrongAmount.ID = database.ComputeTxID(wrongAmount)

	withRef := database.NewCoinbaseTx(addr, 3)
	withRef.Inputs[0].ID = signature.Hash([]byte("ref"))
	withRef.ID = database.ComputeTxID(withRef)

	tt := []struct {
		name  string
		tx    database.Tx
		index uint64
		valid bool
	}{
		{"valid", database.NewCoinbaseTx(addr, 3), 3, true},
		{"wrongindex", database.NewCoinbaseTx(addr, 3), 4, false},
		{"wrongamount", wrongAmount, 3, false},
		{"withref", withRef, 3, false},
		{"badaddress", database.NewCoinbaseTx("04", 3), 3, false},
	}

	t.Log("Given the need to validate coinbase transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				err := database.ValidateCoinbase(tst.tx, tst.index)
				if tst.valid && err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the coinbase: %s", failed, testID, err)
				}
				if !tst.valid && !errors.Is(err, database.ErrStructural) {
					t.Fatalf("\t%s\tTest %d:\tShould reject the coinbase as structural: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected outcome.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
