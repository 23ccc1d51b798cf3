package commands_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/utxochain/app/services/node/handlers"
	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/keystore"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"go.uber.org/zap"
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

func Test_Commands(t *testing.T) {
	kennedy, err := keystore.FromHex(kennedyKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %s", err)
	}
	pavel, err := keystore.FromHex(pavelKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %s", err)
	}

	m := metrics.New()
	st, err := state.New(state.Config{MinerAddress: kennedy.PublicKey(), Metrics: m})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	ctx := context.Background()
	if _, err := st.MineNewBlock(ctx, nil); err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}
	tx, err := st.SendTransaction(pavel.PublicKey(), 20, kennedy.PrivateKey())
	if err != nil {
		t.Fatalf("Should be able to send: %s", err)
	}
	if _, err := st.MineNewBlock(ctx, nil); err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	node := peer.NewNode(peer.Config{Ledger: st, Metrics: m})
	t.Cleanup(node.Shutdown)

	srv := httptest.NewServer(handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Node:     node,
		Key:      kennedy,
		Evts:     events.New(),
		Metrics:  m,
	}))
	t.Cleanup(srv.Close)

	client := commands.NewClient(srv.URL)

	t.Log("Given the need to audit a running node.")
	{
		var out bytes.Buffer
		if err := commands.Balances([]string{"admin", "bals"}, client, &out); err != nil {
			t.Fatalf("\t%s\tShould list the balances: %s", failed, err)
		}
		if !strings.Contains(out.String(), "Address: "+pavel.PublicKey()+"  Balance: 20") {
			t.Fatalf("\t%s\tShould report the recipient balance:\n%s", failed, out.String())
		}
		t.Logf("\t%s\tShould report the recipient balance.", success)

		out.Reset()
		if err := commands.Balances([]string{"admin", "bals", kennedy.PublicKey()}, client, &out); err != nil {
			t.Fatalf("\t%s\tShould list a single balance: %s", failed, err)
		}
		if strings.Contains(out.String(), pavel.PublicKey()) || !strings.Contains(out.String(), "Balance: 80") {
			t.Fatalf("\t%s\tShould only report the requested address:\n%s", failed, out.String())
		}
		t.Logf("\t%s\tShould only report the requested address.", success)

		out.Reset()
		if err := commands.Transactions([]string{"admin", "trans", tx.ID}, client, &out); err != nil {
			t.Fatalf("\t%s\tShould verify the transaction proof: %s", failed, err)
		}
		if !strings.Contains(out.String(), "Proof: verified") {
			t.Fatalf("\t%s\tShould print the verified proof:\n%s", failed, out.String())
		}
		t.Logf("\t%s\tShould verify the transaction proof.", success)

		if err := commands.Transactions([]string{"admin", "trans", strings.Repeat("0", 64)}, client, &out); err == nil {
			t.Fatalf("\t%s\tShould report an unknown transaction.", failed)
		}
		t.Logf("\t%s\tShould report an unknown transaction.", success)

		out.Reset()
		if err := commands.Verify(client, &out); err != nil {
			t.Fatalf("\t%s\tShould replay the chain of the node: %s", failed, err)
		}
		if !strings.Contains(out.String(), "Tip: 2") {
			t.Fatalf("\t%s\tShould report the tip:\n%s", failed, out.String())
		}
		t.Logf("\t%s\tShould replay the chain of the node.", success)
	}
}
