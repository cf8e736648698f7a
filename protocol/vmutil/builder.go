// Package vmutil implements an assembler for the VM's instruction
// set: a streaming encoder with pseudo-operations and symbolic labels
// with near and far jump resolution.
package vmutil

import (
	"encoding/binary"
	"strconv"
	"strings"

	"vm16chain/errors"
	"vm16chain/protocol/vm"
)

// Builder accumulates a program one instruction at a time. Once any
// Add* call fails (immediate out of range, unknown register, unknown
// irq kind), the error sticks: subsequent calls are no-ops and Build
// returns that error, in the manner of a sticky-error writer.
type Builder struct {
	words []uint16
	err   error

	labelCounter int
	labelAddr    map[Label]uint16
	bound        map[Label]bool
	pending      map[Label][]patchSite
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		labelAddr: make(map[Label]uint16),
		bound:     make(map[Label]bool),
		pending:   make(map[Label][]patchSite),
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) emit(word uint16) *Builder {
	if b.err != nil {
		return b
	}
	b.words = append(b.words, word)
	return b
}

func checkImm7(imm int) error {
	if imm < -64 || imm > 63 {
		return errors.WithDetailf(ErrImmediateRange, "immediate %d out of range [-64,63]", imm)
	}
	return nil
}

func checkImm10(imm int) error {
	if imm < 0 || imm > 0x3ff {
		return errors.WithDetailf(ErrImmediateRange, "immediate %d out of range [0,1023]", imm)
	}
	return nil
}

func checkReg(r int) error {
	if r < 0 || r > 7 {
		return errors.WithDetailf(ErrUnknownRegister, "register number %d out of range [0,7]", r)
	}
	return nil
}

// AddAdd emits add a, b, c: R[a] <- R[b] + R[c].
func (b *Builder) AddAdd(a, c, d int) *Builder {
	for _, r := range []int{a, c, d} {
		if err := checkReg(r); err != nil {
			return b.fail(err)
		}
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpAdd, A: a, B: c, C: d}))
}

// AddNand emits nand a, b, c: R[a] <- ~(R[b] & R[c]).
func (b *Builder) AddNand(a, c, d int) *Builder {
	for _, r := range []int{a, c, d} {
		if err := checkReg(r); err != nil {
			return b.fail(err)
		}
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpNand, A: a, B: c, C: d}))
}

// AddAddi emits addi a, b, imm: R[a] <- R[b] + sext(imm).
func (b *Builder) AddAddi(a, c, imm int) *Builder {
	if err := checkReg(a); err != nil {
		return b.fail(err)
	}
	if err := checkReg(c); err != nil {
		return b.fail(err)
	}
	if err := checkImm7(imm); err != nil {
		return b.fail(err)
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpAddi, A: a, B: c, Imm: imm}))
}

// AddLui emits lui a, imm: R[a] <- imm << 6.
func (b *Builder) AddLui(a, imm int) *Builder {
	if err := checkReg(a); err != nil {
		return b.fail(err)
	}
	if err := checkImm10(imm); err != nil {
		return b.fail(err)
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpLui, A: a, Imm: imm}))
}

// AddSw emits sw a, b, imm: mem[R[b]+sext(imm)] <- R[a].
func (b *Builder) AddSw(a, c, imm int) *Builder {
	if err := checkReg(a); err != nil {
		return b.fail(err)
	}
	if err := checkReg(c); err != nil {
		return b.fail(err)
	}
	if err := checkImm7(imm); err != nil {
		return b.fail(err)
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpSw, A: a, B: c, Imm: imm}))
}

// AddLw emits lw a, b, imm: R[a] <- mem[R[b]+sext(imm)].
func (b *Builder) AddLw(a, c, imm int) *Builder {
	if err := checkReg(a); err != nil {
		return b.fail(err)
	}
	if err := checkReg(c); err != nil {
		return b.fail(err)
	}
	if err := checkImm7(imm); err != nil {
		return b.fail(err)
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpLw, A: a, B: c, Imm: imm}))
}

// AddBeq emits beq a, b, imm: if R[a]==R[b], PC <- PC+1+sext(imm).
func (b *Builder) AddBeq(a, c, imm int) *Builder {
	if err := checkReg(a); err != nil {
		return b.fail(err)
	}
	if err := checkReg(c); err != nil {
		return b.fail(err)
	}
	if err := checkImm7(imm); err != nil {
		return b.fail(err)
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpBeq, A: a, B: c, Imm: imm}))
}

// AddJalr emits jalr a, b: R[a] <- PC+1; PC <- R[b].
func (b *Builder) AddJalr(a, c int) *Builder {
	if err := checkReg(a); err != nil {
		return b.fail(err)
	}
	if err := checkReg(c); err != nil {
		return b.fail(err)
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpJalr, A: a, B: c}))
}

// AddIrq emits irq kind, suspending the executing thread. kind must
// be one of vm.IrqSuccess, vm.IrqYield, or vm.IrqFailure.
func (b *Builder) AddIrq(kind int) *Builder {
	switch kind {
	case vm.IrqSuccess, vm.IrqYield, vm.IrqFailure:
	default:
		return b.fail(errors.WithDetailf(ErrUnknownIRQKind, "irq kind %d", kind))
	}
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpIrq, B: kind}))
}

// AddMovi emits the movi pseudo-op: lui a, imm>>6 followed by
// addi a, a, imm&0x3f. imm must be in [0, 65535].
func (b *Builder) AddMovi(a, imm int) *Builder {
	if imm < 0 || imm > 0xffff {
		return b.fail(errors.WithDetailf(ErrImmediateRange, "movi immediate %d out of range [0,65535]", imm))
	}
	b.AddLui(a, imm>>6)
	return b.AddAddi(a, a, imm&0x3f)
}

// AddNop emits the nop pseudo-op: add r0, r0, r0.
func (b *Builder) AddNop() *Builder {
	return b.AddAdd(0, 0, 0)
}

// NewLabel allocates a label that can be used as a jump target in Jmp
// and FarJmp before or after it is bound with Bind.
func (b *Builder) NewLabel() Label {
	b.labelCounter++
	return Label(b.labelCounter)
}

// Bind associates label with the builder's current position, namely
// the program's current length in words: the next instruction added
// will be the first one executed by a jump to label. Bind resolves
// every pending site registered against label and clears its pending
// list. It is an error to call Bind twice for the same label, but
// Builder does not currently diagnose that case (mirroring the
// source's own leniency around re-binding).
func (b *Builder) Bind(label Label) *Builder {
	if b.err != nil {
		return b
	}
	addr := uint16(len(b.words))
	b.labelAddr[label] = addr
	b.bound[label] = true

	for _, site := range b.pending[label] {
		if err := b.patch(site, addr); err != nil {
			return b.fail(err)
		}
	}
	delete(b.pending, label)
	return b
}

// Jmp emits a single-word near jump (beq r0, r0, delta) to label. If
// label is already bound, the delta is computed and range-checked
// immediately. Otherwise one word is reserved and the site is
// recorded for Bind to patch later.
func (b *Builder) Jmp(label Label) *Builder {
	if b.err != nil {
		return b
	}
	if b.bound[label] {
		delta := int(b.labelAddr[label]) - (len(b.words) + 1)
		if delta < -64 || delta > 63 {
			return b.fail(errors.WithDetailf(ErrJumpRange, "jump delta %d out of range [-64,63]", delta))
		}
		return b.emit(vm.Encode(vm.Instruction{Op: vm.OpBeq, A: 0, B: 0, Imm: delta}))
	}
	pos := len(b.words)
	b.pending[label] = append(b.pending[label], patchSite{kind: patchNear, pos: pos})
	return b.emit(0) // placeholder, overwritten by Bind
}

// FarJmp emits a three-instruction far jump (lui; addi; jalr r0, reg)
// that loads label's absolute address into reg and jumps through it.
// As with Jmp, an already-bound label is resolved immediately;
// otherwise three words are reserved for Bind to patch.
func (b *Builder) FarJmp(reg int, label Label) *Builder {
	if err := checkReg(reg); err != nil {
		return b.fail(err)
	}
	if b.bound[label] {
		return b.emitFarJump(reg, b.labelAddr[label])
	}
	pos := len(b.words)
	b.pending[label] = append(b.pending[label], patchSite{kind: patchFar, pos: pos, reg: reg})
	b.emit(0)
	b.emit(0)
	return b.emit(0)
}

func (b *Builder) emitFarJump(reg int, addr uint16) *Builder {
	imm10 := int(addr >> 6)
	imm7 := int(addr & 0x3f)
	b.emit(vm.Encode(vm.Instruction{Op: vm.OpLui, A: reg, Imm: imm10}))
	b.emit(vm.Encode(vm.Instruction{Op: vm.OpAddi, A: reg, B: reg, Imm: imm7}))
	return b.emit(vm.Encode(vm.Instruction{Op: vm.OpJalr, A: 0, B: reg}))
}

func (b *Builder) patch(site patchSite, addr uint16) error {
	switch site.kind {
	case patchNear:
		delta := int(addr) - (site.pos + 1)
		if delta < -64 || delta > 63 {
			return errors.WithDetailf(ErrJumpRange, "jump delta %d out of range [-64,63]", delta)
		}
		b.words[site.pos] = vm.Encode(vm.Instruction{Op: vm.OpBeq, A: 0, B: 0, Imm: delta})
		return nil
	case patchFar:
		imm10 := int(addr >> 6)
		imm7 := int(addr & 0x3f)
		b.words[site.pos] = vm.Encode(vm.Instruction{Op: vm.OpLui, A: site.reg, Imm: imm10})
		b.words[site.pos+1] = vm.Encode(vm.Instruction{Op: vm.OpAddi, A: site.reg, B: site.reg, Imm: imm7})
		b.words[site.pos+2] = vm.Encode(vm.Instruction{Op: vm.OpJalr, A: 0, B: site.reg})
		return nil
	}
	panic("vmutil: unknown patch kind")
}

// Build produces the big-endian byte encoding of the program. Every
// label referenced by Jmp or FarJmp must have been bound by now, or
// Build returns ErrUnresolvedJump.
func (b *Builder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	for label := range b.pending {
		return nil, errors.WithDetailf(ErrUnresolvedJump, "label %d", label)
	}
	out := make([]byte, len(b.words)*2)
	for i, w := range b.words {
		binary.BigEndian.PutUint16(out[i*2:i*2+2], w)
	}
	return out, nil
}

// Register parses a register name of the form "rN", N in [0,7].
func Register(name string) (int, error) {
	if !strings.HasPrefix(name, "r") {
		return 0, errors.WithDetailf(ErrUnknownRegister, "%q", name)
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 7 {
		return 0, errors.WithDetailf(ErrUnknownRegister, "%q", name)
	}
	return n, nil
}
