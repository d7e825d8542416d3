package domain

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLength is the size of an account address / Ed25519 public key.
const AddressLength = 32

// Domain tags used for derived addresses.
const (
	VaultTag = "vault"
	BetTag   = "bet"
)

// DefaultProgramID is the identity that scopes every derived address.
const DefaultProgramID = "3GJV9YpK9BNahmJbuGHVfY2UyiDXDsCFvbvAP34G7LJE"

const pdaMarker = "ProgramDerivedAddress"

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrNoViableBump   = errors.New("unable to find a viable derivation bump")
	ErrAddressOnCurve = errors.New("derived address lies on the ed25519 curve")
)

// Address identifies an account in the ledger. House and player addresses are
// Ed25519 public keys; vault and bet addresses are derived and never on-curve.
type Address [AddressLength]byte

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressLength, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is ParseAddress for constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Less orders addresses bytewise; accounts are always locked in this order.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CreateAddress computes the address for components and an explicit bump. It
// fails when the hash is a valid curve point, since such an address could
// have a private key.
func CreateAddress(programID Address, bump uint8, components ...[]byte) (Address, error) {
	h := sha256.New()
	for _, c := range components {
		h.Write(c)
	}
	h.Write([]byte{bump})
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var a Address
	copy(a[:], h.Sum(nil))
	if isOnCurve(a) {
		return Address{}, ErrAddressOnCurve
	}
	return a, nil
}

// Derive searches bumps from 255 downwards and returns the first off-curve
// address. The result depends only on its inputs.
func Derive(programID Address, components ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		a, err := CreateAddress(programID, uint8(bump), components...)
		if err == nil {
			return a, uint8(bump), nil
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// VaultAddress derives the pool address of a house.
func VaultAddress(programID, house Address) (Address, uint8, error) {
	return Derive(programID, []byte(VaultTag), house[:])
}

// BetAddress derives the record address of a bet from its pool and seed.
func BetAddress(programID, vault Address, seed Seed) (Address, uint8, error) {
	return Derive(programID, []byte(BetTag), vault[:], seed.Bytes())
}

func isOnCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
