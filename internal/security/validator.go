package security

import (
	"fmt"
	"strings"

	"github.com/brinegold/jarvis-settlement/internal/config"
	walletcrypto "github.com/brinegold/jarvis-settlement/internal/crypto"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// The validator is the last gate before any outbound transfer. It is
// stateless: every check runs against the immutable configuration and the
// concrete transfer parameters, and a transfer may only be attempted when
// ValidateTransfer returns IsValid.

// ValidationResult carries the outcome of a config or transfer check.
// Warnings do not block; Errors do.
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	SafeDestination string   `json:"safe_destination,omitempty"`
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Reason flattens the error list into one human-readable string.
func (r *ValidationResult) Reason() string {
	return strings.Join(r.Errors, "; ")
}

// ValidateConfig checks the custody configuration. It fails closed: with no
// admin wallet configured nothing may ever be transferred.
func ValidateConfig(cfg *config.Config) ValidationResult {
	result := ValidationResult{}

	adminWallet := strings.TrimSpace(cfg.Wallet.AdminWallet)
	feeWallet := strings.TrimSpace(cfg.Wallet.FeeWallet)

	if adminWallet == "" && feeWallet == "" {
		result.addError("no admin wallet configured: all transfers are blocked")
	}

	var canonicalAdmin string
	if adminWallet != "" {
		canonical, err := walletcrypto.ValidateAddress(adminWallet)
		if err != nil {
			result.addError("admin wallet address invalid: %v", err)
		} else {
			canonicalAdmin = canonical
		}
	}
	if feeWallet != "" {
		if _, err := walletcrypto.ValidateAddress(feeWallet); err != nil {
			result.addError("fee wallet address invalid: %v", err)
		}
	}

	custodyKey := strings.TrimSpace(cfg.Wallet.CustodyPrivateKey)
	if custodyKey == "" {
		result.addError("custody private key is not configured")
	} else {
		canonicalKey, err := walletcrypto.ValidatePrivateKey(custodyKey)
		if err != nil {
			result.addError("custody private key invalid: %v", err)
		} else if canonicalAdmin != "" {
			// The key must actually control the claimed admin wallet,
			// otherwise we would sign from an unintended account.
			derived, err := deriveAddress(canonicalKey)
			if err != nil {
				result.addError("custody private key unusable: %v", err)
			} else if !walletcrypto.SameAddress(derived, canonicalAdmin) {
				result.addError("custody key mismatch: key controls %s, admin wallet is %s", derived, canonicalAdmin)
			}
		}
	}

	if cfg.Wallet.Seed == config.DefaultWalletSeed {
		result.addWarning("wallet seed is the documented default value; derived deposit addresses are predictable")
	}

	result.IsValid = len(result.Errors) == 0
	if result.IsValid {
		result.SafeDestination = canonicalAdmin
	}
	return result
}

// ValidateTransfer gates a single outbound transfer. Beyond the structural
// address checks it requires the destination to be one of the configured
// admin wallets; any other destination is treated as a tampered parameter,
// not a user mistake.
func ValidateTransfer(from, to string, amount decimal.Decimal, cfg *config.Config) ValidationResult {
	result := ValidateConfig(cfg)

	if _, err := walletcrypto.ValidateAddress(from); err != nil {
		result.addError("source address invalid: %v", err)
	}

	canonicalTo, err := walletcrypto.ValidateAddress(to)
	if err != nil {
		result.addError("destination address invalid: %v", err)
	} else if !isAuthorizedDestination(canonicalTo, cfg) {
		result.addError("security violation: destination %s is not an authorized admin wallet", canonicalTo)
	}

	if !amount.IsPositive() {
		result.addError("transfer amount must be positive, got %s", amount.String())
	}

	result.IsValid = len(result.Errors) == 0
	if result.IsValid {
		result.SafeDestination = canonicalTo
	} else {
		result.SafeDestination = ""
	}
	return result
}

func isAuthorizedDestination(canonicalTo string, cfg *config.Config) bool {
	for _, wallet := range []string{cfg.Wallet.AdminWallet, cfg.Wallet.FeeWallet} {
		if wallet != "" && walletcrypto.SameAddress(canonicalTo, wallet) {
			return true
		}
	}
	return false
}

func deriveAddress(canonicalKey string) (string, error) {
	privateKey, err := gethcrypto.HexToECDSA(strings.TrimPrefix(canonicalKey, "0x"))
	if err != nil {
		return "", err
	}
	return strings.ToLower(gethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex()), nil
}
