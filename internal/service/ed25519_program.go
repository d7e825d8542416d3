package service

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/pkg/apperror"
)

// Ed25519 instruction data layout: a two byte header (signature count,
// padding) followed by one 14 byte offsets record per signature, then the
// referenced bytes.
const (
	ed25519HeaderSize      = 2
	ed25519OffsetsSize     = 14
	ed25519PublicKeySize   = ed25519.PublicKeySize
	ed25519SignatureSize   = ed25519.SignatureSize
	ed25519DataStart       = ed25519HeaderSize + ed25519OffsetsSize
	ed25519CurrentIxMarker = 0xFFFF
)

var errOutOfBounds = errors.New("offset out of bounds")

type ed25519Offsets struct {
	signatureOffset uint16
	signatureIx     uint16
	publicKeyOffset uint16
	publicKeyIx     uint16
	messageOffset   uint16
	messageSize     uint16
	messageIx       uint16
}

func (o ed25519Offsets) selfContained() bool {
	return o.signatureIx == ed25519CurrentIxMarker &&
		o.publicKeyIx == ed25519CurrentIxMarker &&
		o.messageIx == ed25519CurrentIxMarker
}

// Ed25519Program implements ports.SignatureVerifier. It plays the part of
// the host's signature-verification program: it checks every signature an
// instruction carries and reports what was verified, so that resolution
// only has to inspect the result.
type Ed25519Program struct{}

func NewEd25519Program() *Ed25519Program {
	return &Ed25519Program{}
}

// Execute runs ix. Instructions for other programs are recorded without
// being interpreted. For Ed25519 instructions every self-contained entry
// must verify or the whole step fails. Entries pointing into other
// instructions cannot be checked here and are reported as unverifiable.
func (p *Ed25519Program) Execute(ix domain.Instruction) (*domain.InstructionResult, error) {
	result := &domain.InstructionResult{
		ProgramID:    ix.ProgramID,
		AccountCount: len(ix.Accounts),
	}
	if ix.ProgramID != domain.Ed25519ProgramID {
		return result, nil
	}

	data := ix.Data
	if len(data) < ed25519HeaderSize {
		return nil, apperror.ErrMalformedInstruction(fmt.Errorf("data too short: %d bytes", len(data)))
	}
	count := int(data[0])
	if len(data) < ed25519HeaderSize+count*ed25519OffsetsSize {
		return nil, apperror.ErrMalformedInstruction(fmt.Errorf("truncated offsets for %d signatures", count))
	}

	result.Signatures = make([]domain.VerifiedSignature, 0, count)
	for i := 0; i < count; i++ {
		o := readOffsets(data[ed25519HeaderSize+i*ed25519OffsetsSize:])
		if !o.selfContained() {
			result.Signatures = append(result.Signatures, domain.VerifiedSignature{IsVerifiable: false})
			continue
		}

		sig, err := slice(data, o.signatureOffset, ed25519SignatureSize)
		if err != nil {
			return nil, apperror.ErrMalformedInstruction(fmt.Errorf("signature %d: %w", i, err))
		}
		pub, err := slice(data, o.publicKeyOffset, ed25519PublicKeySize)
		if err != nil {
			return nil, apperror.ErrMalformedInstruction(fmt.Errorf("public key %d: %w", i, err))
		}
		msg, err := slice(data, o.messageOffset, int(o.messageSize))
		if err != nil {
			return nil, apperror.ErrMalformedInstruction(fmt.Errorf("message %d: %w", i, err))
		}

		if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
			return nil, apperror.ErrSignatureVerificationFailed()
		}

		signer, _ := domain.AddressFromBytes(pub)
		result.Signatures = append(result.Signatures, domain.VerifiedSignature{
			IsVerifiable: true,
			PublicKey:    &signer,
			Signature:    append([]byte(nil), sig...),
			Message:      append([]byte(nil), msg...),
		})
	}
	return result, nil
}

// NewEd25519Instruction builds a single-signature, self-contained Ed25519
// instruction over message. The house submits one of these, signed over the
// canonical bet encoding, ahead of every resolution.
func NewEd25519Instruction(key ed25519.PrivateKey, message []byte) domain.Instruction {
	pub := key.Public().(ed25519.PublicKey)
	sig := ed25519.Sign(key, message)
	return NewEd25519InstructionFromParts(pub, sig, message)
}

// NewEd25519InstructionFromParts lays out an already produced signature.
func NewEd25519InstructionFromParts(pub ed25519.PublicKey, sig, message []byte) domain.Instruction {
	pubOffset := ed25519DataStart
	sigOffset := pubOffset + len(pub)
	msgOffset := sigOffset + len(sig)

	data := make([]byte, 0, msgOffset+len(message))
	data = append(data, 1, 0)
	for _, v := range []int{
		sigOffset, ed25519CurrentIxMarker,
		pubOffset, ed25519CurrentIxMarker,
		msgOffset, len(message), ed25519CurrentIxMarker,
	} {
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
	}
	data = append(data, pub...)
	data = append(data, sig...)
	data = append(data, message...)

	return domain.Instruction{ProgramID: domain.Ed25519ProgramID, Data: data}
}

func readOffsets(b []byte) ed25519Offsets {
	u := func(i int) uint16 { return binary.LittleEndian.Uint16(b[2*i:]) }
	return ed25519Offsets{
		signatureOffset: u(0),
		signatureIx:     u(1),
		publicKeyOffset: u(2),
		publicKeyIx:     u(3),
		messageOffset:   u(4),
		messageSize:     u(5),
		messageIx:       u(6),
	}
}

func slice(data []byte, offset uint16, size int) ([]byte, error) {
	start := int(offset)
	end := start + size
	if end > len(data) {
		return nil, fmt.Errorf("%w: [%d:%d] of %d", errOutOfBounds, start, end, len(data))
	}
	return data[start:end], nil
}
