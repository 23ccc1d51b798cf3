// Package keystore manages the private key a node or a wallet signs with.
// The key is stored in a file as a hex encoded secp256k1 scalar.
package keystore

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyStore holds a private key and the address derived from it.
type KeyStore struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// New constructs a key store around the private key.
func New(privateKey *ecdsa.PrivateKey) *KeyStore {
	return &KeyStore{
		privateKey: privateKey,
		address:    signature.PublicKeyToAddress(privateKey.PublicKey),
	}
}

// Load reads the private key stored in the file.
func Load(path string) (*KeyStore, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("loading key %q: %w", path, err)
	}

	return New(privateKey), nil
}

// LoadOrCreate reads the private key stored in the file, generating and
// saving a new key when the file does not exist. It reports whether a new
// key was created.
func LoadOrCreate(path string) (*KeyStore, bool, error) {
	ks, err := Load(path)
	if err == nil {
		return ks, false, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	privateKey, err := Generate(path)
	if err != nil {
		return nil, false, err
	}

	return New(privateKey), true, nil
}

// Generate creates a new private key and saves it in the file. An existing
// file is never overwritten.
func Generate(path string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("key %q already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating key folder: %w", err)
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, fmt.Errorf("saving key %q: %w", path, err)
	}

	return privateKey, nil
}

// FromHex constructs a transient key store from a hex encoded private key.
func FromHex(privateKeyHex string) (*KeyStore, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}

	return New(privateKey), nil
}

// PublicKey returns the address of the key.
func (ks *KeyStore) PublicKey() string {
	return ks.address
}

// PrivateKey returns the private key.
func (ks *KeyStore) PrivateKey() *ecdsa.PrivateKey {
	return ks.privateKey
}

// Hex returns the private key hex encoded, the form FromHex accepts.
func (ks *KeyStore) Hex() string {
	return hex.EncodeToString(crypto.FromECDSA(ks.privateKey))
}

// Sign produces a hex encoded signature over the hash of the message.
func (ks *KeyStore) Sign(message []byte) (string, error) {
	return signature.Sign(signature.Hash(message), ks.privateKey)
}
