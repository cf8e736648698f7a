package vmutil

import (
	"fmt"
	"strings"

	"vm16chain/protocol/vm"
)

// Disassemble decodes prog, a big-endian byte stream whose length
// must be a multiple of two, into its instructions. Disassemble never
// fails on a well-formed (even-length) byte stream: every word is a
// legal instruction.
func Disassemble(prog []byte) ([]vm.Instruction, error) {
	if len(prog)%2 != 0 {
		return nil, fmt.Errorf("vmutil: odd-length program (%d bytes)", len(prog))
	}
	out := make([]vm.Instruction, 0, len(prog)/2)
	for i := 0; i < len(prog); i += 2 {
		word := uint16(prog[i])<<8 | uint16(prog[i+1])
		out = append(out, vm.Decode(word))
	}
	return out, nil
}

// String renders an instruction in assembler syntax.
func String(ins vm.Instruction) string {
	reg := func(r int) string { return fmt.Sprintf("r%d", r) }
	switch ins.Op {
	case vm.OpAdd, vm.OpNand:
		return fmt.Sprintf("%s %s, %s, %s", ins.Op, reg(ins.A), reg(ins.B), reg(ins.C))
	case vm.OpAddi, vm.OpSw, vm.OpLw, vm.OpBeq:
		return fmt.Sprintf("%s %s, %s, %d", ins.Op, reg(ins.A), reg(ins.B), ins.Imm)
	case vm.OpLui:
		return fmt.Sprintf("%s %s, %d", ins.Op, reg(ins.A), ins.Imm)
	case vm.OpJalr:
		return fmt.Sprintf("%s %s, %s", ins.Op, reg(ins.A), reg(ins.B))
	case vm.OpIrq:
		return fmt.Sprintf("%s %d", ins.Op, ins.B)
	}
	return "?"
}

// DisassembleText is a convenience wrapper around Disassemble that
// renders the result as one instruction per line.
func DisassembleText(prog []byte) (string, error) {
	instrs, err := Disassemble(prog)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(instrs))
	for i, ins := range instrs {
		lines[i] = String(ins)
	}
	return strings.Join(lines, "\n"), nil
}
