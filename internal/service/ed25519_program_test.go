package service

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"provably-fair-dice/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519Program_Execute_SelfContained(t *testing.T) {
	key, signer := testKey(1)
	msg := []byte("bet encoding")

	ix := NewEd25519Instruction(key, msg)
	res, err := NewEd25519Program().Execute(ix)
	require.NoError(t, err)

	assert.True(t, res.FromEd25519Program())
	assert.Equal(t, 0, res.AccountCount)
	require.Len(t, res.Signatures, 1)

	entry := res.Signatures[0]
	assert.True(t, entry.IsVerifiable)
	assert.True(t, entry.SignedBy(signer))
	assert.True(t, entry.HasMessage(msg))
	assert.True(t, entry.HasSignature(ed25519.Sign(key, msg)))
}

func TestEd25519Program_Execute_Layout(t *testing.T) {
	key, signer := testKey(1)
	msg := []byte("m")
	ix := NewEd25519Instruction(key, msg)

	data := ix.Data
	assert.Equal(t, byte(1), data[0])
	assert.Equal(t, byte(0), data[1])
	assert.Equal(t, uint16(48), binary.LittleEndian.Uint16(data[2:]))
	assert.Equal(t, uint16(0xFFFF), binary.LittleEndian.Uint16(data[4:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[6:]))
	assert.Equal(t, uint16(112), binary.LittleEndian.Uint16(data[10:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[12:]))
	assert.Equal(t, signer.Bytes(), data[16:48])
	assert.Len(t, data, 113)
}

func TestEd25519Program_Execute_OtherProgram(t *testing.T) {
	_, other := testKey(3)
	ix := domain.Instruction{ProgramID: other, Accounts: []domain.Address{other}, Data: []byte{0xde, 0xad}}

	res, err := NewEd25519Program().Execute(ix)
	require.NoError(t, err)
	assert.False(t, res.FromEd25519Program())
	assert.Equal(t, 1, res.AccountCount)
	assert.Empty(t, res.Signatures)
}

func TestEd25519Program_Execute_BadSignature(t *testing.T) {
	key, _ := testKey(1)
	ix := NewEd25519Instruction(key, []byte("bet"))
	ix.Data[len(ix.Data)-1] ^= 0x01

	_, err := NewEd25519Program().Execute(ix)
	assertAppError(t, err, "FAIR_008")
}

func TestEd25519Program_Execute_CrossInstructionEntry(t *testing.T) {
	key, _ := testKey(1)
	ix := NewEd25519Instruction(key, []byte("bet"))
	// Point the message at instruction 0 instead of the current one.
	binary.LittleEndian.PutUint16(ix.Data[14:], 0)

	res, err := NewEd25519Program().Execute(ix)
	require.NoError(t, err)
	require.Len(t, res.Signatures, 1)
	assert.False(t, res.Signatures[0].IsVerifiable)
	assert.Nil(t, res.Signatures[0].PublicKey)
}

func TestEd25519Program_Execute_Malformed(t *testing.T) {
	key, _ := testKey(1)
	valid := NewEd25519Instruction(key, []byte("bet")).Data

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", []byte{1, 0}},
		{"truncated offsets", valid[:10]},
		{"message out of bounds", valid[:len(valid)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := domain.Instruction{ProgramID: domain.Ed25519ProgramID, Data: tt.data}
			_, err := NewEd25519Program().Execute(ix)
			assertAppError(t, err, "FAIR_009")
		})
	}
}

func TestEd25519Program_Execute_NoSignatures(t *testing.T) {
	ix := domain.Instruction{ProgramID: domain.Ed25519ProgramID, Data: []byte{0, 0}}

	res, err := NewEd25519Program().Execute(ix)
	require.NoError(t, err)
	assert.Empty(t, res.Signatures)
}

func TestNewEd25519InstructionFromParts(t *testing.T) {
	key, signer := testKey(4)
	msg := []byte("parts")
	sig := ed25519.Sign(key, msg)

	ix := NewEd25519InstructionFromParts(key.Public().(ed25519.PublicKey), sig, msg)
	res, err := NewEd25519Program().Execute(ix)
	require.NoError(t, err)
	assert.True(t, res.Signatures[0].SignedBy(signer))
	assert.Equal(t, ix, NewEd25519Instruction(key, msg))
}
