package vmutil

import "vm16chain/errors"

// Assembler errors. Every one is fatal to the assembly it occurs in;
// none of these conditions can reach the VM.
var (
	ErrImmediateRange  = errors.New("immediate out of range")
	ErrUnknownRegister = errors.New("unknown register")
	ErrUnknownIRQKind  = errors.New("unknown irq kind")
	ErrUnresolvedJump  = errors.New("unresolved jump target")
	ErrJumpRange       = errors.New("short jump delta out of range")
)
