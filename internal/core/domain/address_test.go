package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress(DefaultProgramID)
	require.NoError(t, err)
	assert.Equal(t, DefaultProgramID, a.String())

	_, err = ParseAddress("0OIl")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseAddress("3GJV9Yp")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestEd25519ProgramID(t *testing.T) {
	assert.Equal(t, Ed25519ProgramIDString, Ed25519ProgramID.String())
}

func TestAddress_JSON(t *testing.T) {
	a := MustParseAddress(DefaultProgramID)
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+DefaultProgramID+`"`, string(raw))

	var back Address
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, a, back)

	assert.Error(t, json.Unmarshal([]byte(`"not-base58!"`), &back))
}

func TestAddress_Less(t *testing.T) {
	a := Address{1}
	b := Address{1, 1}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}

func TestDerive_DeterministicAndOffCurve(t *testing.T) {
	program := MustParseAddress(DefaultProgramID)
	house := Address{7, 7, 7}

	v1, bump1, err := VaultAddress(program, house)
	require.NoError(t, err)
	v2, bump2, err := VaultAddress(program, house)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, isOnCurve(v1))

	again, err := CreateAddress(program, bump1, []byte(VaultTag), house[:])
	require.NoError(t, err)
	assert.Equal(t, v1, again)
}

func TestDerive_ScopedByEveryInput(t *testing.T) {
	program := MustParseAddress(DefaultProgramID)
	house := Address{7}

	vault, _, err := VaultAddress(program, house)
	require.NoError(t, err)

	otherHouse, _, err := VaultAddress(program, Address{8})
	require.NoError(t, err)
	assert.NotEqual(t, vault, otherHouse)

	otherProgram, _, err := VaultAddress(Ed25519ProgramID, house)
	require.NoError(t, err)
	assert.NotEqual(t, vault, otherProgram)

	bet1, _, err := BetAddress(program, vault, SeedFromUint64(1))
	require.NoError(t, err)
	bet2, _, err := BetAddress(program, vault, SeedFromUint64(2))
	require.NoError(t, err)
	assert.NotEqual(t, bet1, bet2)
	assert.NotEqual(t, vault, bet1)
}

func TestCreateAddress_RejectsOnCurve(t *testing.T) {
	program := MustParseAddress(DefaultProgramID)
	house := Address{9}

	// Some bump in the search space yields an on-curve hash; Derive skips it.
	rejected := 0
	for bump := 255; bump >= 0; bump-- {
		a, err := CreateAddress(program, uint8(bump), []byte(VaultTag), house[:])
		if err != nil {
			assert.ErrorIs(t, err, ErrAddressOnCurve)
			rejected++
			continue
		}
		assert.False(t, isOnCurve(a))
	}
	assert.Greater(t, rejected, 0)
}
