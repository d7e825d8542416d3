package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// SeedLength is the size of a bet seed in bytes.
const SeedLength = 16

var ErrInvalidSeed = errors.New("invalid seed")

// Seed is a player-chosen unsigned 128-bit integer, stored little-endian. It
// only disambiguates bet addresses and plays no part in the roll.
type Seed [SeedLength]byte

// SeedFromUint64 widens v to a seed.
func SeedFromUint64(v uint64) Seed {
	var s Seed
	for i := 0; i < 8; i++ {
		s[i] = byte(v >> (8 * i))
	}
	return s
}

// ParseSeed parses a base-10 value in [0, 2^128).
func ParseSeed(dec string) (Seed, error) {
	var s Seed
	v, err := uint256.FromDecimal(dec)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if v.BitLen() > 8*SeedLength {
		return s, fmt.Errorf("%w: exceeds 128 bits", ErrInvalidSeed)
	}
	be := v.Bytes32()
	for i := 0; i < SeedLength; i++ {
		s[i] = be[31-i]
	}
	return s, nil
}

// SeedFromBytes copies 16 little-endian bytes into a seed.
func SeedFromBytes(b []byte) (Seed, error) {
	var s Seed
	if len(b) != SeedLength {
		return s, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeed, SeedLength, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// Bytes returns the little-endian encoding.
func (s Seed) Bytes() []byte {
	return s[:]
}

func (s Seed) Int() *uint256.Int {
	return leUint(s[:])
}

func (s Seed) String() string {
	return s.Int().Dec()
}

func (s Seed) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Seed) UnmarshalJSON(data []byte) error {
	var dec string
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	parsed, err := ParseSeed(dec)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// leUint reads up to 32 little-endian bytes.
func leUint(b []byte) *uint256.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(uint256.Int).SetBytes(be)
}
