package domain

import "bytes"

// Ed25519ProgramIDString is the identity of the signature-verification
// program whose result a resolution must be preceded by.
const Ed25519ProgramIDString = "Ed25519SigVerify111111111111111111111111111"

// Ed25519ProgramID is Ed25519ProgramIDString decoded.
var Ed25519ProgramID = MustParseAddress(Ed25519ProgramIDString)

// Instruction is a step submitted in the same atomic unit as a resolution and
// executed before it.
type Instruction struct {
	ProgramID Address
	Accounts  []Address
	Data      []byte
}

// VerifiedSignature is one entry of an executed Ed25519 instruction. Fields
// are nil when the entry points outside the instruction's own data.
type VerifiedSignature struct {
	IsVerifiable bool
	PublicKey    *Address
	Signature    []byte
	Message      []byte
}

// InstructionResult is the auditable outcome of executing an Instruction.
// Resolution trusts it and never verifies signatures itself.
type InstructionResult struct {
	ProgramID    Address
	AccountCount int
	Signatures   []VerifiedSignature
}

// FromEd25519Program reports whether the result came from the Ed25519 program.
func (r *InstructionResult) FromEd25519Program() bool {
	return r != nil && r.ProgramID == Ed25519ProgramID
}

// SignedBy reports whether the entry's public key is signer.
func (s VerifiedSignature) SignedBy(signer Address) bool {
	return s.PublicKey != nil && *s.PublicKey == signer
}

// HasSignature reports whether the entry carries exactly sig.
func (s VerifiedSignature) HasSignature(sig []byte) bool {
	return s.Signature != nil && bytes.Equal(s.Signature, sig)
}

// HasMessage reports whether the entry signed exactly msg.
func (s VerifiedSignature) HasMessage(msg []byte) bool {
	return s.Message != nil && bytes.Equal(s.Message, msg)
}
