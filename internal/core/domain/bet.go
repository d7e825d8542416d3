package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// EncodedBetLength is the size of the canonical bet encoding:
// bump, target, slot, amount, seed, player.
const EncodedBetLength = 1 + 1 + 8 + 8 + SeedLength + AddressLength

// betAccountDiscriminator is the account-type prefix counted in the storage
// deposit of a bet record.
const betAccountDiscriminator = 8

var ErrInvalidEncoding = errors.New("invalid bet encoding")

// Bet is the escrow record of a single wager. Every field except Lamports
// and the bookkeeping timestamps is fixed at placement.
type Bet struct {
	Address   Address   `json:"address"`
	Vault     Address   `json:"vault"`
	Bump      uint8     `json:"bump"`
	Target    uint8     `json:"target"`
	Slot      uint64    `json:"slot"`
	Amount    uint64    `json:"amount"`
	Seed      Seed      `json:"seed"`
	Player    Address   `json:"player"`
	Lamports  uint64    `json:"lamports"` // storage deposit held by the record
	CreatedAt time.Time `json:"created_at"`
}

// Encode returns the canonical byte encoding the house signs. Changing it
// invalidates every signature already issued.
func (b *Bet) Encode() []byte {
	out := make([]byte, 0, EncodedBetLength)
	out = append(out, b.Bump, b.Target)
	out = binary.LittleEndian.AppendUint64(out, b.Slot)
	out = binary.LittleEndian.AppendUint64(out, b.Amount)
	out = append(out, b.Seed[:]...)
	out = append(out, b.Player[:]...)
	return out
}

// DecodeBet parses a canonical encoding. Address, Vault, Lamports and
// CreatedAt are not part of it and stay zero.
func DecodeBet(data []byte) (*Bet, error) {
	if len(data) != EncodedBetLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, EncodedBetLength, len(data))
	}
	b := &Bet{
		Bump:   data[0],
		Target: data[1],
		Slot:   binary.LittleEndian.Uint64(data[2:10]),
		Amount: binary.LittleEndian.Uint64(data[10:18]),
	}
	copy(b.Seed[:], data[18:34])
	copy(b.Player[:], data[34:66])
	return b, nil
}

// BetRentDeposit is the deposit a player pays to open a bet record.
func BetRentDeposit() uint64 {
	return RentExemptMinimum(betAccountDiscriminator + EncodedBetLength)
}

const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionYears         = 2
)

// RentExemptMinimum is the balance an account of dataLen bytes must hold to
// stay allocated.
func RentExemptMinimum(dataLen uint64) uint64 {
	return (accountStorageOverhead + dataLen) * lamportsPerByteYear * exemptionYears
}
