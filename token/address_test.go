package token_test

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"

	"github.com/pflow-xyz/go-mona/token"
)

func TestParseAddress(t *testing.T) {
	in := "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"
	a, err := token.ParseAddress(in)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a.String() != in {
		t.Errorf("round trip: expected %q, got %q", in, a.String())
	}

	// Uppercase hex parses and renders back as lowercase.
	upper, err := token.ParseAddress("0X" + strings.ToUpper(in[2:]))
	if err != nil {
		t.Fatalf("parse uppercase failed: %v", err)
	}
	if upper != a {
		t.Error("case variants parsed to different addresses")
	}
}

func TestParseAddressErrors(t *testing.T) {
	cases := []string{
		"",
		"1f9840a85d5af5bf1d1762f925bdaddc4201f984", // missing prefix
		"0x123",    // short
		"0xzz9840a85d5af5bf1d1762f925bdaddc4201f984", // bad hex
		"0x1f9840a85d5af5bf1d1762f925bdaddc4201f98400", // long
	}
	for _, in := range cases {
		if _, err := token.ParseAddress(in); !errors.Is(err, token.ErrBadAddress) {
			t.Errorf("parse %q: expected ErrBadAddress, got: %v", in, err)
		}
	}
}

func TestZeroAddress(t *testing.T) {
	if !token.ZeroAddress.IsZero() {
		t.Error("zero address does not report IsZero")
	}
	if token.ZeroAddress.String() != "0x0000000000000000000000000000000000000000" {
		t.Errorf("unexpected zero address rendering: %s", token.ZeroAddress.String())
	}
	if alice.IsZero() {
		t.Error("nonzero address reports IsZero")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 1
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	a := token.AddressFromPubKey(pub)
	if a.IsZero() {
		t.Fatal("derived address is zero")
	}
	if b := token.AddressFromPubKey(pub); b != a {
		t.Error("derivation is not deterministic")
	}

	seed[0] = 2
	other := token.AddressFromPubKey(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
	if other == a {
		t.Error("different keys derived the same address")
	}
}

func TestLedgerAddress(t *testing.T) {
	a := token.LedgerAddress(deployer, 0)
	if a.IsZero() {
		t.Fatal("ledger address is zero")
	}
	if token.LedgerAddress(deployer, 0) != a {
		t.Error("derivation is not deterministic")
	}
	if token.LedgerAddress(deployer, 1) == a {
		t.Error("creation sequence does not separate ledger addresses")
	}
	if token.LedgerAddress(alice, 0) == a {
		t.Error("deployer does not separate ledger addresses")
	}
}
