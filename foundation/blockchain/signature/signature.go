// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
)

// ZeroHash represents the previous hash recorded by the genesis block.
const ZeroHash string = "0"

// addressVersion is the version byte prefixed to the public key hash before
// the address is base58check encoded. Bitcoin uses 0x00 for main net.
const addressVersion = 0x00

// Set of errors returned by the package.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// =============================================================================

// Hash returns the lowercase hex encoded sha256 of the specified string.
func Hash(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PublicKeyBytes returns the uncompressed encoding of the public key.
func PublicKeyBytes(publicKey ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(&publicKey)
}

// Sign uses the specified private key to sign the sha256 digest of the data.
// The 65 byte signature is returned in the [R|S|V] format.
func Sign(data string, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256([]byte(data))

	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return nil, err
	}

	// Check the signature against the public key before handing it out.
	if !crypto.VerifySignature(PublicKeyBytes(privateKey.PublicKey), digest[:], sig[:crypto.RecoveryIDOffset]) {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}

// Verify checks the signature was produced over the data by the private key
// matching the specified public key. The signature must be in the 65 byte
// [R|S|V] format and the key recovered from it must be the declared key.
func Verify(data string, publicKey []byte, sig []byte) error {
	if len(publicKey) == 0 {
		return ErrInvalidPublicKey
	}

	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	// Check the recovery id is either 0 or 1.
	v := sig[crypto.RecoveryIDOffset]
	if v != 0 && v != 1 {
		return fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, v)
	}

	// Check the signature values are valid.
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:crypto.RecoveryIDOffset])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return fmt.Errorf("%w: signature values", ErrInvalidSignature)
	}

	digest := sha256.Sum256([]byte(data))
	if !crypto.VerifySignature(publicKey, digest[:], sig[:crypto.RecoveryIDOffset]) {
		return ErrInvalidSignature
	}

	recovered, err := crypto.Ecrecover(digest[:], sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if !bytes.Equal(recovered, publicKey) {
		return fmt.Errorf("%w: recovery id does not match the public key", ErrInvalidSignature)
	}

	return nil
}

// Address derives the base58check address for the encoded public key:
// base58check(version || ripemd160(sha256(publicKey))).
func Address(publicKey []byte) string {
	sha := sha256.Sum256(publicKey)

	rip := ripemd160.New()
	rip.Write(sha[:])

	return base58.CheckEncode(rip.Sum(nil), addressVersion)
}

// PublicKeyToAddress derives the address for the specified public key.
func PublicKeyToAddress(publicKey ecdsa.PublicKey) string {
	return Address(PublicKeyBytes(publicKey))
}

// ValidAddress reports whether the string decodes as a base58check address
// carrying the expected version byte.
func ValidAddress(address string) bool {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return false
	}

	return version == addressVersion && len(payload) == ripemd160.Size
}

// SignatureString returns the signature as a hex string.
func SignatureString(sig []byte) string {
	if len(sig) == 0 {
		return ""
	}
	return hexutil.Encode(sig)
}

// SelfTest performs a sign and verify round trip to confirm the signing
// algorithm is available in this process.
func SelfTest() error {
	privateKey, err := GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	const data = "self-test"

	sig, err := Sign(data, privateKey)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	if err := Verify(data, PublicKeyBytes(privateKey.PublicKey), sig); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	return nil
}
