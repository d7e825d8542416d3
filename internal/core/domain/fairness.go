package domain

import (
	"crypto/sha256"
	"errors"

	"github.com/holiman/uint256"
)

const (
	// HouseEdgeBps is the house edge in basis points (1.5%).
	HouseEdgeBps = 150
	// RefundCooldownSlots must strictly elapse after placement before a refund.
	RefundCooldownSlots uint64 = 9000

	MinTarget uint8 = 2
	MaxTarget uint8 = 99

	bpsDenominator = 10000
	percent        = 100
)

var ErrArithmetic = errors.New("arithmetic overflow or division by zero")

var mask128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// Roll maps a house signature to [1, 100]. The SHA-256 digest of the raw
// signature is split into two little-endian 128-bit halves, added modulo
// 2^128, reduced modulo 100 and shifted by one.
func Roll(signature []byte) uint8 {
	digest := sha256.Sum256(signature)
	lower := leUint(digest[:16])
	upper := leUint(digest[16:])

	sum := new(uint256.Int).Add(lower, upper)
	sum.And(sum, mask128)
	sum.Mod(sum, uint256.NewInt(percent))
	return uint8(sum.Uint64()) + 1
}

// Wins reports whether a bet on target is won by roll.
func Wins(target, roll uint8) bool {
	return target > roll
}

// ValidTarget reports whether target is accepted at placement.
func ValidTarget(target uint8) bool {
	return target >= MinTarget && target <= MaxTarget
}

// Payout computes amount * (10000 - edge) / (target - 1) / 100, truncating
// after each division. Every step is checked; the result must fit in 64 bits.
func Payout(amount uint64, target uint8) (uint64, error) {
	if target < 1 {
		return 0, ErrArithmetic
	}
	odds := uint64(target) - 1
	if odds == 0 {
		return 0, ErrArithmetic
	}

	p, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(amount), uint256.NewInt(bpsDenominator-HouseEdgeBps))
	if overflow {
		return 0, ErrArithmetic
	}
	p.Div(p, uint256.NewInt(odds))
	p.Div(p, uint256.NewInt(percent))
	if !p.IsUint64() {
		return 0, ErrArithmetic
	}
	return p.Uint64(), nil
}

// CooldownElapsed reports whether a bet placed at placedSlot may be refunded
// at currentSlot.
func CooldownElapsed(placedSlot, currentSlot uint64) bool {
	if currentSlot < placedSlot {
		return false
	}
	return currentSlot-placedSlot > RefundCooldownSlots
}
