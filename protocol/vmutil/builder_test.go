package vmutil

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	"vm16chain/protocol/vm"
	"vm16chain/testutil"
)

func TestAddMovi(t *testing.T) {
	// movi r1, 0x1234 emits lui r1, 0x1234>>6 (=0x48) then
	// addi r1, r1, 0x1234&0x3f (=0x34).
	b := NewBuilder()
	b.AddMovi(1, 0x1234)
	prog, err := b.Build()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	want, err := hex.DecodeString("644824b4")
	if err != nil {
		testutil.FatalErr(t, err)
	}
	testutil.ExpectProgramEqual(t, prog, want, "movi r1, 0x1234")

	instrs, err := Disassemble(prog)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	want2 := []vm.Instruction{
		{Op: vm.OpLui, A: 1, Imm: 0x48},
		{Op: vm.OpAddi, A: 1, B: 1, Imm: 0x34},
	}
	testutil.ExpectEqual(t, instrs, want2, "disassemble(movi r1, 0x1234)")
}

func TestAddIrq(t *testing.T) {
	cases := []struct {
		kind    int
		wantHex string
	}{
		{vm.IrqSuccess, "e081"},
		{vm.IrqFailure, "e101"},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("kind %d", c.kind), func(t *testing.T) {
			b := NewBuilder()
			b.AddIrq(c.kind)
			prog, err := b.Build()
			if err != nil {
				testutil.FatalErr(t, err)
			}
			want, err := hex.DecodeString(c.wantHex)
			if err != nil {
				testutil.FatalErr(t, err)
			}
			if !bytes.Equal(prog, want) {
				t.Errorf("got %x, want %x", prog, want)
			}
		})
	}
}

func buildErr(b *Builder) func() error {
	return func() error {
		_, err := b.Build()
		return err
	}
}

func TestAddIrqUnknownKind(t *testing.T) {
	b := NewBuilder()
	b.AddIrq(99)
	testutil.ExpectError(t, ErrUnknownIRQKind, "irq with unknown kind", buildErr(b))
}

func TestAddAddiImmediateRange(t *testing.T) {
	b := NewBuilder()
	b.AddAddi(1, 1, 64) // out of [-64,63]
	testutil.ExpectError(t, ErrImmediateRange, "addi immediate out of range", buildErr(b))
}

func TestJmp(t *testing.T) {
	cases := []struct {
		name string
		fn   func(t *testing.T, b *Builder)
	}{
		{
			"forward jump, target not yet bound",
			func(t *testing.T, b *Builder) {
				target := b.NewLabel()
				b.Jmp(target)
				b.AddNop()
				b.Bind(target)
			},
		},
		{
			"backward jump, target already bound",
			func(t *testing.T, b *Builder) {
				target := b.NewLabel()
				b.Bind(target)
				b.AddNop()
				b.Jmp(target)
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := NewBuilder()
			c.fn(t, b)
			prog, err := b.Build()
			if err != nil {
				testutil.FatalErr(t, err)
			}
			instrs, err := Disassemble(prog)
			if err != nil {
				testutil.FatalErr(t, err)
			}
			for _, ins := range instrs {
				if ins.Op != vm.OpBeq && ins.Op != vm.OpAdd {
					t.Fatalf("unexpected op %v in %v", ins.Op, instrs)
				}
			}
			// Every beq in the program must jump to a word within the
			// program or to the position just past its last word.
			for i, ins := range instrs {
				if ins.Op != vm.OpBeq {
					continue
				}
				target := i + 1 + ins.Imm
				if target < 0 || target > len(instrs) {
					t.Errorf("beq at %d jumps to %d, out of program bounds [0,%d]", i, target, len(instrs))
				}
			}
		})
	}
}

func TestJmpOutOfRange(t *testing.T) {
	b := NewBuilder()
	target := b.NewLabel()
	b.Bind(target)
	for i := 0; i < 70; i++ {
		b.AddNop()
	}
	b.Jmp(target)
	testutil.ExpectError(t, ErrJumpRange, "jump delta out of range", buildErr(b))
}

func TestFarJmp(t *testing.T) {
	cases := []struct {
		name string
		fn   func(t *testing.T, b *Builder)
	}{
		{
			"far jump, target not yet bound",
			func(t *testing.T, b *Builder) {
				target := b.NewLabel()
				b.FarJmp(1, target)
				b.AddNop()
				b.Bind(target)
			},
		},
		{
			"far jump, target already bound",
			func(t *testing.T, b *Builder) {
				target := b.NewLabel()
				b.Bind(target)
				b.AddNop()
				b.FarJmp(1, target)
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := NewBuilder()
			c.fn(t, b)
			prog, err := b.Build()
			if err != nil {
				testutil.FatalErr(t, err)
			}
			instrs, err := Disassemble(prog)
			if err != nil {
				testutil.FatalErr(t, err)
			}
			var farJumps int
			for i := 0; i+2 < len(instrs)+1 && i < len(instrs); i++ {
				if instrs[i].Op == vm.OpLui && i+2 < len(instrs) &&
					instrs[i+1].Op == vm.OpAddi && instrs[i+2].Op == vm.OpJalr {
					farJumps++
				}
			}
			if farJumps == 0 {
				t.Errorf("no lui;addi;jalr sequence found in %v", instrs)
			}
		})
	}
}

func TestFarJmpResolution(t *testing.T) {
	// A far jump to a label bound at word 0x03FF must become
	// lui r1, 15; addi r1, r1, 63; jalr r0, r1, since
	// 0x03FF == (15 << 6) | 63.
	b := NewBuilder()
	target := b.NewLabel()
	b.FarJmp(1, target)
	for i := 0; i < 0x03ff-3; i++ {
		b.AddNop()
	}
	b.Bind(target)
	prog, err := b.Build()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	instrs, err := Disassemble(prog)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	want := []vm.Instruction{
		{Op: vm.OpLui, A: 1, Imm: 15},
		{Op: vm.OpAddi, A: 1, B: 1, Imm: 63},
		{Op: vm.OpJalr, A: 0, B: 1},
	}
	if fmt.Sprint(instrs[:3]) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", instrs[:3], want)
	}
}

func TestBuildUnresolvedJump(t *testing.T) {
	b := NewBuilder()
	target := b.NewLabel()
	b.Jmp(target)
	testutil.ExpectError(t, ErrUnresolvedJump, "unresolved jump target", buildErr(b))
}

func TestRegister(t *testing.T) {
	cases := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"r0", 0, false},
		{"r7", 7, false},
		{"r8", 0, true},
		{"rx", 0, true},
		{"x1", 0, true},
	}
	for _, c := range cases {
		got, err := Register(c.name)
		if c.wantErr {
			if err == nil {
				t.Errorf("Register(%q) = %d, nil, want error", c.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Register(%q) = _, %v, want nil error", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("Register(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}
