package crypto

import (
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address and key validation for the settlement path. Every address that can
// reach the chain gateway goes through ValidateAddress first; the canonical
// form is the lower-cased 0x hex string.

const (
	// AddressLength is the expected length of an address in bytes
	AddressLength = 20
	// addressHexLength is "0x" plus 40 hex digits
	addressHexLength = 2 + AddressLength*2
	// privateKeyHexLength is 64 hex digits without the prefix
	privateKeyHexLength = 64
)

var (
	ErrAddressEmpty   = errors.New("address is empty")
	ErrAddressPrefix  = errors.New("address must start with 0x")
	ErrAddressLength  = errors.New("address must be 42 characters long")
	ErrAddressHex     = errors.New("address contains non-hex characters")
	ErrAddressDenied  = errors.New("address is on the denylist")
	ErrKeyEmpty       = errors.New("private key is empty")
	ErrKeyLength      = errors.New("private key must be 64 hex digits")
	ErrKeyHex         = errors.New("private key contains non-hex characters")
	ErrKeyWeak        = errors.New("private key is trivially weak")
)

// deniedAddresses are never valid transfer destinations: the zero address,
// the conventional burn address, and the throwaway test address that shows
// up in copy-pasted examples.
var deniedAddresses = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0x000000000000000000000000000000000000dead": true,
	"0x1234567890123456789012345678901234567890": true,
}

// weakPrivateKeys are constant-pattern keys that must never control funds.
var weakPrivateKeys = map[string]bool{
	"0x" + strings.Repeat("0", 64): true,
	"0x" + strings.Repeat("1", 64): true,
	"0x" + strings.Repeat("a", 64): true,
	"0x" + strings.Repeat("f", 64): true,
}

// ValidateAddress checks the structural rules and the denylist, returning the
// lower-cased canonical form on success.
func ValidateAddress(input string) (string, error) {
	if input == "" {
		return "", ErrAddressEmpty
	}
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		return "", ErrAddressPrefix
	}
	if len(input) != addressHexLength {
		return "", ErrAddressLength
	}
	if !isHex(input[2:]) {
		return "", ErrAddressHex
	}

	canonical := strings.ToLower(input)
	if deniedAddresses[canonical] {
		return "", ErrAddressDenied
	}
	return canonical, nil
}

// ValidatePrivateKey accepts a key with or without 0x prefix and returns the
// canonical 0x-prefixed lower-cased form.
func ValidatePrivateKey(input string) (string, error) {
	if input == "" {
		return "", ErrKeyEmpty
	}

	hexPart := input
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		hexPart = input[2:]
	}
	if len(hexPart) != privateKeyHexLength {
		return "", ErrKeyLength
	}
	if !isHex(hexPart) {
		return "", ErrKeyHex
	}

	canonical := "0x" + strings.ToLower(hexPart)
	if weakPrivateKeys[canonical] {
		return "", ErrKeyWeak
	}
	return canonical, nil
}

// SameAddress compares two addresses ignoring case and checksum casing.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ToChecksumAddress returns the EIP-55 mixed-case form of a structurally
// valid address, for display and logging.
func ToChecksumAddress(input string) (string, error) {
	canonical, err := ValidateAddress(input)
	if err != nil {
		return "", err
	}

	hexPart := []byte(canonical[2:])
	sha := sha3.NewLegacyKeccak256()
	sha.Write(hexPart)
	hash := sha.Sum(nil)

	for i := 0; i < len(hexPart); i++ {
		hashByte := hash[i/2]
		if i%2 == 0 {
			hashByte >>= 4
		} else {
			hashByte &= 0xf
		}
		if hexPart[i] > '9' && hashByte > 7 {
			hexPart[i] -= 32
		}
	}
	return "0x" + string(hexPart), nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
