package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	kennedyKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pavelKey   = "aed31b6b5a2cd4ab8e4fbd1ec2a6b4c7c8a71dd81fe1aa6cd7a4d7e3fc2b15c1"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func key(t *testing.T, hexKey string) (*ecdsa.PrivateKey, string) {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	ifErrFailNow(t, err)

	return pk, signature.PublicKeyToAddress(pk.PublicKey)
}

func newState(t *testing.T, minerAddress string) *state.State {
	t.Helper()

	ev := func(v string, args ...any) {
		t.Logf(v, args...)
	}

	st, err := state.New(state.Config{
		MinerAddress: minerAddress,
		EvHandler:    ev,
		Metrics:      metrics.New(),
	})
	ifErrFailNow(t, err)

	return st
}

func mine(t *testing.T, st *state.State, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		_, err := st.MineNewBlock(context.Background(), nil)
		ifErrFailNow(t, err)
	}
}

// =============================================================================

func Test_MineFromGenesis(t *testing.T) {
	_, kennedy := key(t, kennedyKey)
	st := newState(t, kennedy)

	t.Log("Given the need to mine the first block on top of genesis.")
	{
		block, err := st.MineNewBlock(context.Background(), nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if block.Index != 1 || block.Difficulty != 0 || st.RetrieveLatestBlock().Hash != block.Hash {
			t.Fatalf("\t%s\tShould append the block at index 1.", failed)
		}
		t.Logf("\t%s\tShould append the block at index 1.", success)

		utxos := st.RetrieveUTXOSet()
		if utxos.Len() != 2 {
			t.Fatalf("\t%s\tShould gain exactly one unspent output: %d", failed, utxos.Len())
		}
		t.Logf("\t%s\tShould gain exactly one unspent output.", success)

		utxo, exists := utxos.Lookup(database.OutPoint{ID: block.Trans[0].ID, Index: 0})
		if !exists || utxo.Amount != database.CoinbaseAmount || utxo.Address != kennedy {
			t.Fatalf("\t%s\tShould key the reward by the coinbase id: %+v", failed, utxo)
		}
		t.Logf("\t%s\tShould key the reward by the coinbase id.", success)

		if _, err := st.MineNewBlock(context.Background(), []database.Tx{}); !errors.Is(err, state.ErrNoTransactions) {
			t.Fatalf("\t%s\tShould refuse to mine an empty block: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to mine an empty block.", success)
	}
}

func Test_SendTransaction(t *testing.T) {
	kennedyPK, kennedy := key(t, kennedyKey)
	_, pavel := key(t, pavelKey)
	st := newState(t, kennedy)
	mine(t, st, 1)

	reward := st.RetrieveOutputs(kennedy)[0]

	t.Log("Given the need to move value between addresses.")
	{
		tx, err := st.SendTransaction(pavel, 20, kennedyPK)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to send 20 units: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to send 20 units.", success)

		if len(tx.Inputs) != 1 || tx.Inputs[0].OutPoint != reward.OutPoint {
			t.Fatalf("\t%s\tShould consume the reward output.", failed)
		}
		t.Logf("\t%s\tShould consume the reward output.", success)

		total, err := tx.OutputTotal()
		if err != nil || total != reward.Amount {
			t.Fatalf("\t%s\tShould produce outputs summing to the input: %d", failed, total)
		}
		t.Logf("\t%s\tShould produce outputs summing to the input.", success)

		if st.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould hold the transaction in the mempool.", failed)
		}
		t.Logf("\t%s\tShould hold the transaction in the mempool.", success)

		if _, err := st.SendTransaction(pavel, 20, kennedyPK); err == nil {
			t.Fatalf("\t%s\tShould not spend an output already spent by the pool.", failed)
		}
		t.Logf("\t%s\tShould not spend an output already spent by the pool.", success)

		block, err := st.MineNewBlock(context.Background(), nil)
		ifErrFailNow(t, err)

		if len(block.Trans) != 2 || st.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould mine the pooled transaction and empty the pool.", failed)
		}
		t.Logf("\t%s\tShould mine the pooled transaction and empty the pool.", success)

		if got := st.RetrieveBalance(pavel); got != 20 {
			t.Fatalf("\t%s\tShould credit the recipient: %d", failed, got)
		}
		if got := st.RetrieveBalance(kennedy); got != 80 {
			t.Fatalf("\t%s\tShould credit the change and the new reward: %d", failed, got)
		}
		t.Logf("\t%s\tShould update the balances.", success)

		if err := st.UpsertWalletTransaction(tx); !errors.Is(err, database.ErrUnresolvedInput) {
			t.Fatalf("\t%s\tShould reject a transaction spending a consumed output: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a transaction spending a consumed output.", success)

		record, err := st.RetrieveTransaction(tx.ID)
		if err != nil || record.BlockHash != block.Hash || len(record.Proof) == 0 {
			t.Fatalf("\t%s\tShould find the transaction in the chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould find the transaction in the chain.", success)

		if err := record.Verify(); err != nil {
			t.Fatalf("\t%s\tShould prove the transaction against the block root: %s", failed, err)
		}
		t.Logf("\t%s\tShould prove the transaction against the block root.", success)

		record.Tx.Outputs[0].Amount++
		if err := record.Verify(); err == nil {
			t.Fatalf("\t%s\tShould refuse a proof for altered content.", failed)
		}
		t.Logf("\t%s\tShould refuse a proof for altered content.", success)

		utxos, err := state.ValidateChain(st.RetrieveChain())
		if err != nil || utxos.Len() != len(st.RetrieveUTXOs()) {
			t.Fatalf("\t%s\tShould replay the chain to the same outputs: %v", failed, err)
		}
		t.Logf("\t%s\tShould replay the chain to the same outputs.", success)
	}
}

func Test_MempoolDuplicate(t *testing.T) {
	kennedyPK, kennedy := key(t, kennedyKey)
	_, pavel := key(t, pavelKey)
	st := newState(t, kennedy)
	mine(t, st, 1)

	utxos := st.RetrieveUTXOSet()
	op := st.RetrieveOutputs(kennedy)[0].OutPoint

	build := func(amount uint64) database.Tx {
		tx := database.NewTx([]database.OutPoint{op}, []database.TxOut{
			{Address: pavel, Amount: amount},
			{Address: kennedy, Amount: 50 - amount},
		})
		sig, err := database.SignInput(tx, 0, kennedyPK, utxos)
		ifErrFailNow(t, err)
		tx.Inputs[0].Signature = sig
		return tx
	}

	t.Log("Given the need to keep the mempool free of conflicts.")
	{
		if err := st.UpsertWalletTransaction(build(10)); err != nil {
			t.Fatalf("\t%s\tShould accept the first transaction: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept the first transaction.", success)

		if err := st.UpsertNodeTransaction(build(15)); !errors.Is(err, database.ErrDuplicateInput) {
			t.Fatalf("\t%s\tShould reject the second transaction spending the same output: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject the second transaction spending the same output.", success)

		if st.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould keep only the first transaction.", failed)
		}
		t.Logf("\t%s\tShould keep only the first transaction.", success)
	}
}

func Test_Append(t *testing.T) {
	_, kennedy := key(t, kennedyKey)
	_, pavel := key(t, pavelKey)

	a := newState(t, kennedy)
	b := newState(t, pavel)
	mine(t, b, 1)

	block := b.RetrieveLatestBlock()

	t.Log("Given the need to append a block from a peer.")
	{
		wrong := block.Clone()
		wrong.Difficulty = 1
		wrong.Hash = wrong.CalculateHash()
		for !database.HashSolved(wrong.Hash, 1) {
			wrong.Nonce++
			wrong.Hash = wrong.CalculateHash()
		}

		if err := a.Append(wrong); !errors.Is(err, database.ErrProofOfWork) {
			t.Fatalf("\t%s\tShould reject a block with the wrong difficulty: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a block with the wrong difficulty.", success)

		if err := a.ProcessPeerBlock(block); err != nil {
			t.Fatalf("\t%s\tShould append the peer block: %s", failed, err)
		}
		t.Logf("\t%s\tShould append the peer block.", success)

		if err := a.Append(block); !errors.Is(err, database.ErrLinkage) {
			t.Fatalf("\t%s\tShould reject the same block twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject the same block twice.", success)

		if a.RetrieveLatestBlock().Hash != block.Hash || a.RetrieveBalance(pavel) != 50 {
			t.Fatalf("\t%s\tShould move the tip and the outputs together.", failed)
		}
		t.Logf("\t%s\tShould move the tip and the outputs together.", success)
	}
}

func Test_Replace(t *testing.T) {
	kennedyPK, kennedy := key(t, kennedyKey)
	_, pavel := key(t, pavelKey)

	a := newState(t, kennedy)
	b := newState(t, pavel)

	mine(t, a, 1)
	mine(t, b, 1)

	t.Log("Given the need to choose the heavier chain.")
	{
		if err := a.Replace(b.RetrieveChain()); !errors.Is(err, state.ErrNotHeavier) {
			t.Fatalf("\t%s\tShould reject a chain with equal work: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a chain with equal work.", success)

		_, err := a.SendTransaction(pavel, 5, kennedyPK)
		ifErrFailNow(t, err)

		mine(t, b, 1)
		chain := b.RetrieveChain()

		tampered := b.RetrieveChain()
		tampered[0].Timestamp++
		if err := a.Replace(tampered); !errors.Is(err, database.ErrGenesisMismatch) {
			t.Fatalf("\t%s\tShould reject a chain with another genesis: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a chain with another genesis.", success)

		broken := b.RetrieveChain()
		broken[2].PreviousHash = broken[0].Hash
		if err := a.Replace(broken); !errors.Is(err, database.ErrLinkage) {
			t.Fatalf("\t%s\tShould reject a chain with a broken link: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a chain with a broken link.", success)

		if a.RetrieveLatestBlock().Index != 1 || a.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould leave the state untouched after a rejection.", failed)
		}
		t.Logf("\t%s\tShould leave the state untouched after a rejection.", success)

		if err := a.ProcessPeerChain(chain); err != nil {
			t.Fatalf("\t%s\tShould accept the heavier chain: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept the heavier chain.", success)

		if a.RetrieveLatestBlock().Hash != chain[2].Hash || a.RetrieveBalance(kennedy) != 0 || a.RetrieveBalance(pavel) != 100 {
			t.Fatalf("\t%s\tShould swap the chain and the outputs together.", failed)
		}
		t.Logf("\t%s\tShould swap the chain and the outputs together.", success)

		if a.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould drop pooled transactions spending outputs that no longer exist.", failed)
		}
		t.Logf("\t%s\tShould drop pooled transactions spending outputs that no longer exist.", success)
	}
}

func Test_ReplaceAcrossAdjustment(t *testing.T) {
	_, kennedy := key(t, kennedyKey)
	_, pavel := key(t, pavelKey)

	a := newState(t, kennedy)
	b := newState(t, pavel)

	mine(t, a, 3)
	mine(t, b, 2*database.AdjustmentInterval+2)

	t.Log("Given the need to adopt a longer chain that crossed a difficulty adjustment.")
	{
		chain := b.RetrieveChain()

		boundary := chain[2*database.AdjustmentInterval+1]
		if boundary.Difficulty != chain[1].Difficulty+1 {
			t.Fatalf("\t%s\tShould raise the difficulty after fast blocks: got %d, exp %d", failed, boundary.Difficulty, chain[1].Difficulty+1)
		}
		t.Logf("\t%s\tShould raise the difficulty after fast blocks.", success)

		if err := a.Replace(chain); err != nil {
			t.Fatalf("\t%s\tShould accept the longer chain: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept the longer chain.", success)

		if a.RetrieveLatestBlock().Hash != chain[len(chain)-1].Hash {
			t.Fatalf("\t%s\tShould move the tip to the adopted chain.", failed)
		}
		t.Logf("\t%s\tShould move the tip to the adopted chain.", success)

		block, err := a.MineNewBlock(context.Background(), nil)
		ifErrFailNow(t, err)

		if block.Difficulty != boundary.Difficulty {
			t.Fatalf("\t%s\tShould keep mining at the adjusted difficulty: got %d, exp %d", failed, block.Difficulty, boundary.Difficulty)
		}
		t.Logf("\t%s\tShould keep mining at the adjusted difficulty.", success)
	}

	t.Log("Given the need to keep a longer local chain against a shorter one.")
	{
		c := newState(t, pavel)
		mine(t, c, database.AdjustmentInterval+2)

		if err := a.Replace(c.RetrieveChain()); !errors.Is(err, state.ErrNotHeavier) {
			t.Fatalf("\t%s\tShould reject a chain with less work: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a chain with less work.", success)

		if err := c.Replace(a.RetrieveChain()); err != nil {
			t.Fatalf("\t%s\tShould let the shorter side adopt the longer chain: %s", failed, err)
		}
		t.Logf("\t%s\tShould let the shorter side adopt the longer chain.", success)
	}
}
