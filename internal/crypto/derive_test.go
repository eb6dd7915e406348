package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestNewWalletDeriverRequiresSeed(t *testing.T) {
	if _, err := NewWalletDeriver("", "salt"); !errors.Is(err, ErrSeedMissing) {
		t.Fatalf("NewWalletDeriver with empty seed: error = %v, want %v", err, ErrSeedMissing)
	}
	if _, err := NewWalletDeriver("seed", ""); err != nil {
		t.Fatalf("NewWalletDeriver with empty salt should work: %v", err)
	}
}

func TestDeriveUserWalletDeterministic(t *testing.T) {
	deriver, err := NewWalletDeriver("test-seed", "test-salt")
	if err != nil {
		t.Fatal(err)
	}

	first, err := deriver.DeriveUserWallet("user-42")
	if err != nil {
		t.Fatal(err)
	}
	second, err := deriver.DeriveUserWallet("user-42")
	if err != nil {
		t.Fatal(err)
	}

	if first.Address != second.Address {
		t.Errorf("derivation not deterministic: %s vs %s", first.Address, second.Address)
	}
	if first.OwnershipProof != second.OwnershipProof {
		t.Error("ownership proof not deterministic")
	}

	if _, err := ValidateAddress(first.Address); err != nil {
		t.Errorf("derived address %q does not validate: %v", first.Address, err)
	}
	if first.Address != strings.ToLower(first.Address) {
		t.Errorf("derived address %q is not canonical lowercase", first.Address)
	}
}

func TestDeriveUserWalletNormalizesID(t *testing.T) {
	deriver, err := NewWalletDeriver("test-seed", "test-salt")
	if err != nil {
		t.Fatal(err)
	}

	plain, err := deriver.DeriveUserWallet("user-42")
	if err != nil {
		t.Fatal(err)
	}
	padded, err := deriver.DeriveUserWallet("  USER-42  ")
	if err != nil {
		t.Fatal(err)
	}

	if plain.Address != padded.Address {
		t.Errorf("user id normalization broken: %s vs %s", plain.Address, padded.Address)
	}
}

func TestDeriveUserWalletDistinctInputs(t *testing.T) {
	deriver, err := NewWalletDeriver("test-seed", "test-salt")
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]string{}
	for _, id := range []string{"user-1", "user-2", "user-3", "user-10", "user-11"} {
		wallet, err := deriver.DeriveUserWallet(id)
		if err != nil {
			t.Fatalf("DeriveUserWallet(%q): %v", id, err)
		}
		if prev, dup := seen[wallet.Address]; dup {
			t.Fatalf("users %q and %q derived the same address %s", prev, id, wallet.Address)
		}
		seen[wallet.Address] = id
	}

	otherSeed, err := NewWalletDeriver("another-seed", "test-salt")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := deriver.DeriveUserWallet("user-1")
	b, _ := otherSeed.DeriveUserWallet("user-1")
	if a.Address == b.Address {
		t.Error("different seeds derived the same address")
	}
}

func TestVerifyOwnership(t *testing.T) {
	deriver, err := NewWalletDeriver("test-seed", "test-salt")
	if err != nil {
		t.Fatal(err)
	}

	wallet, err := deriver.DeriveUserWallet("user-7")
	if err != nil {
		t.Fatal(err)
	}

	if !deriver.VerifyOwnership("user-7", wallet.Address, wallet.OwnershipProof) {
		t.Error("valid ownership proof rejected")
	}
	checksummed, err := ToChecksumAddress(wallet.Address)
	if err != nil {
		t.Fatal(err)
	}
	if !deriver.VerifyOwnership("user-7", checksummed, wallet.OwnershipProof) {
		t.Error("proof rejected for checksummed form of the same address")
	}
	if deriver.VerifyOwnership("user-8", wallet.Address, wallet.OwnershipProof) {
		t.Error("proof accepted for the wrong user")
	}
	if deriver.VerifyOwnership("user-7", wallet.Address, "deadbeef") {
		t.Error("garbage proof accepted")
	}
}
