package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"
)

const (
	derivationIterations = 100000
	derivationKeyLength  = 32
	maxDerivationRetries = 10
)

var (
	// ErrSeedMissing is returned when derivation is attempted without a
	// configured seed. Deriving from an empty seed would hand out the same
	// weak wallets to every deployment, so this fails fast instead.
	ErrSeedMissing = errors.New("wallet seed is not configured")

	errDerivationExhausted = errors.New("failed to derive a valid key after maximum retries")
)

// DerivedWallet is the public result of a derivation: the deposit address and
// an HMAC proof tying it to the user id. The private key never leaves this
// package.
type DerivedWallet struct {
	Address        string
	OwnershipProof string
}

// WalletDeriver deterministically derives per-user deposit addresses from the
// process-wide seed. Same (seed, userID) always yields the same address.
type WalletDeriver struct {
	seed string
	salt string
}

// NewWalletDeriver creates a deriver, failing fast when no seed is configured.
func NewWalletDeriver(seed, salt string) (*WalletDeriver, error) {
	if seed == "" {
		return nil, ErrSeedMissing
	}
	return &WalletDeriver{seed: seed, salt: salt}, nil
}

// DeriveUserWallet derives the deposit address for a user id.
func (d *WalletDeriver) DeriveUserWallet(userID string) (*DerivedWallet, error) {
	input := d.derivationInput(userID)

	derivedKey := pbkdf2.Key([]byte(input), []byte(d.salt), derivationIterations, derivationKeyLength, sha256.New)
	keyMaterial := sha256.Sum256(derivedKey)

	// A 32-byte hash is not always a valid secp256k1 scalar; nudge the
	// input until one is, the way every attempt stays deterministic.
	for attempt := 0; attempt < maxDerivationRetries; attempt++ {
		candidate := sha256.Sum256(append(keyMaterial[:], byte(attempt)))
		privateKey, err := gethcrypto.ToECDSA(candidate[:])
		if err != nil {
			continue
		}

		address := strings.ToLower(gethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex())
		return &DerivedWallet{
			Address:        address,
			OwnershipProof: d.ownershipProof(userID, address),
		}, nil
	}

	return nil, errDerivationExhausted
}

func (d *WalletDeriver) derivationInput(userID string) string {
	normalized := strings.ToLower(strings.TrimSpace(userID))
	return fmt.Sprintf("wallet_derivation_%s_%s_%s", normalized, d.seed, d.salt)
}

// ownershipProof lets collaborators verify an address belongs to a user
// without re-running the KDF.
func (d *WalletDeriver) ownershipProof(userID, address string) string {
	mac := hmac.New(sha256.New, []byte(d.seed))
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(userID))))
	mac.Write([]byte(address))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyOwnership checks an ownership proof produced by DeriveUserWallet.
func (d *WalletDeriver) VerifyOwnership(userID, address, proof string) bool {
	expected := d.ownershipProof(userID, strings.ToLower(address))
	return hmac.Equal([]byte(expected), []byte(proof))
}
