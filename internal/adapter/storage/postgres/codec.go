package postgres

import (
	"fmt"
	"strconv"

	"provably-fair-dice/internal/core/domain"
)

// Addresses are stored as base58 text and balances as NUMERIC(20,0), which
// holds the full uint64 range. Balances travel as decimal text both ways.

func scanAddress(s string) (domain.Address, error) {
	a, err := domain.ParseAddress(s)
	if err != nil {
		return domain.Address{}, fmt.Errorf("decode address %q: %w", s, err)
	}
	return a, nil
}

func scanAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode amount %q: %w", s, err)
	}
	return v, nil
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}
