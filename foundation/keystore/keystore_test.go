package keystore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/keystore"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const kennedyKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func Test_LoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.ecdsa")

	t.Log("Given the need to start with a key on disk.")
	{
		ks, created, err := keystore.LoadOrCreate(path)
		if err != nil || !created {
			t.Fatalf("\t%s\tShould create a missing key: %v", failed, err)
		}
		t.Logf("\t%s\tShould create a missing key.", success)

		if !signature.IsAddress(ks.PublicKey()) {
			t.Fatalf("\t%s\tShould derive a valid address: %s", failed, ks.PublicKey())
		}
		t.Logf("\t%s\tShould derive a valid address.", success)

		again, created, err := keystore.LoadOrCreate(path)
		if err != nil || created {
			t.Fatalf("\t%s\tShould load the existing key: %v", failed, err)
		}
		if again.PublicKey() != ks.PublicKey() {
			t.Fatalf("\t%s\tShould load the same key.", failed)
		}
		t.Logf("\t%s\tShould load the same key.", success)

		if _, err := keystore.Generate(path); err == nil {
			t.Fatalf("\t%s\tShould refuse to overwrite a key.", failed)
		}
		t.Logf("\t%s\tShould refuse to overwrite a key.", success)
	}

	t.Log("Given the need to reject a corrupted key file.")
	{
		bad := filepath.Join(t.TempDir(), "bad.ecdsa")
		if err := os.WriteFile(bad, []byte("zz"), 0600); err != nil {
			t.Fatalf("Should be able to write the file: %s", err)
		}

		if _, _, err := keystore.LoadOrCreate(bad); err == nil {
			t.Fatalf("\t%s\tShould fail on a corrupted key.", failed)
		}
		t.Logf("\t%s\tShould fail on a corrupted key.", success)
	}
}

func Test_Sign(t *testing.T) {
	t.Log("Given the need to sign with a key supplied in hex.")
	{
		ks, err := keystore.FromHex(kennedyKey)
		if err != nil {
			t.Fatalf("\t%s\tShould decode the key: %s", failed, err)
		}
		t.Logf("\t%s\tShould decode the key.", success)

		message := []byte("pay pavel 20")

		sig, err := ks.Sign(message)
		if err != nil {
			t.Fatalf("\t%s\tShould sign the message: %s", failed, err)
		}
		t.Logf("\t%s\tShould sign the message.", success)

		if err := signature.Verify(signature.Hash(message), sig, ks.PublicKey()); err != nil {
			t.Fatalf("\t%s\tShould verify against the address: %s", failed, err)
		}
		t.Logf("\t%s\tShould verify against the address.", success)

		if _, err := keystore.FromHex("not a key"); err == nil {
			t.Fatalf("\t%s\tShould reject a malformed key.", failed)
		}
		t.Logf("\t%s\tShould reject a malformed key.", success)
	}
}
