// Package signature provides helper functions for handling the blockchain
// hashing and signature needs. Keys live on the secp256k1 curve and an
// address is the hex encoding of the uncompressed public key.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// AddressLength is the number of hex characters in an address: the 0x04
// prefix followed by the 32 byte X and Y coordinates.
const AddressLength = 130

// =============================================================================

// Hash returns the hex encoded sha256 digest of the concatenated data.
func Hash(data ...[]byte) string {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// IsHash checks the value is a 64 character hex string.
func IsHash(value string) bool {
	if len(value) != 64 {
		return false
	}

	_, err := hex.DecodeString(value)
	return err == nil
}

// IsAddress checks the address is 130 hex characters starting with 04,
// which denotes an uncompressed curve point.
func IsAddress(address string) bool {
	if len(address) != AddressLength {
		return false
	}

	if !strings.HasPrefix(address, "04") {
		return false
	}

	_, err := hex.DecodeString(address)
	return err == nil
}

// PublicKeyToAddress converts the public key into its address form.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&pk))
}

// Sign produces a DER encoded signature, hex encoded, over the specified
// hex digest using the private key.
func Sign(digest string, privateKey *ecdsa.PrivateKey) (string, error) {
	hash, err := hex.DecodeString(digest)
	if err != nil {
		return "", fmt.Errorf("decoding digest: %w", err)
	}

	pk, _ := btcec.PrivKeyFromBytes(crypto.FromECDSA(privateKey))
	sig := btcecdsa.Sign(pk, hash)

	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks the hex encoded DER signature was produced over the hex
// digest by the private key behind the address.
func Verify(digest string, sigHex string, address string) error {
	hash, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("decoding digest: %w", err)
	}

	keyBytes, err := hex.DecodeString(address)
	if err != nil {
		return fmt.Errorf("decoding address: %w", err)
	}

	publicKey, err := btcec.ParsePubKey(keyBytes)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}

	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	sig, err := btcecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}

	if !sig.Verify(hash, publicKey) {
		return errors.New("signature does not match address")
	}

	return nil
}
