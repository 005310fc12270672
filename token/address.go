package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLen is the length of an account identifier in bytes.
const AddressLen = 20

// Address identifies an account. The zero value is the null address,
// written 0x0000000000000000000000000000000000000000.
type Address [AddressLen]byte

// ZeroAddress is the null address. Credits to it are rejected.
var ZeroAddress = Address{}

// ParseAddress parses a 0x-prefixed, 40-hex-digit account identifier.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, fmt.Errorf("%w: address %q missing 0x prefix", ErrBadAddress, s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return a, fmt.Errorf("%w: address %q: %v", ErrBadAddress, s, err)
	}
	if len(raw) != AddressLen {
		return a, fmt.Errorf("%w: address %q has %d bytes, want %d", ErrBadAddress, s, len(raw), AddressLen)
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress parses an address and panics on failure.
// Intended for fixtures and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromPubKey derives an account address from an ed25519 public key:
// the last 20 bytes of the Keccak-256 digest of the key.
func AddressFromPubKey(pub ed25519.PublicKey) Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)

	var a Address
	copy(a[:], sum[len(sum)-AddressLen:])
	return a
}

// LedgerAddress derives the address a deployed ledger is known by: the
// last 20 bytes of the Keccak-256 digest of the deployer address and
// the big-endian creation sequence.
func LedgerAddress(deployer Address, seq uint64) Address {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], seq)

	h := sha3.NewLegacyKeccak256()
	h.Write(deployer[:])
	h.Write(n[:])
	sum := h.Sum(nil)

	var a Address
	copy(a[:], sum[len(sum)-AddressLen:])
	return a
}

// IsZero reports whether a is the null address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String renders the address as 0x-prefixed lowercase hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLen)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler so addresses can key JSON maps.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
