package vm

import (
	"testing"

	"vm16chain/testutil"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ins  Instruction
	}{
		{"add", Instruction{Op: OpAdd, A: 1, B: 2, C: 3}},
		{"nand", Instruction{Op: OpNand, A: 5, B: 6, C: 7}},
		{"addi positive", Instruction{Op: OpAddi, A: 1, B: 2, Imm: 63}},
		{"addi negative", Instruction{Op: OpAddi, A: 1, B: 2, Imm: -64}},
		{"lui", Instruction{Op: OpLui, A: 4, Imm: 0x3ff}},
		{"sw", Instruction{Op: OpSw, A: 1, B: 2, Imm: -1}},
		{"lw", Instruction{Op: OpLw, A: 3, B: 4, Imm: 10}},
		{"beq", Instruction{Op: OpBeq, A: 0, B: 0, Imm: -1}},
		{"jalr", Instruction{Op: OpJalr, A: 1, B: 2}},
		{"irq success", Instruction{Op: OpIrq, B: IrqSuccess}},
		{"irq yield", Instruction{Op: OpIrq, B: IrqYield}},
		{"irq failure", Instruction{Op: OpIrq, B: IrqFailure}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			word := Encode(c.ins)
			got := Decode(word)
			testutil.ExpectEqual(t, got, c.ins, "Decode(Encode(...))")
		})
	}
}

func TestIrqWireValuesMatchWorkedExamples(t *testing.T) {
	// These two words appear in the scenario table as "irq success"
	// and "irq failure"; the kind constants are chosen so Encode
	// reproduces them exactly.
	if got := Encode(Instruction{Op: OpIrq, B: IrqSuccess}); got != 0xE081 {
		t.Errorf("irq success = %04x, want e081", got)
	}
	if got := Encode(Instruction{Op: OpIrq, B: IrqFailure}); got != 0xE101 {
		t.Errorf("irq failure = %04x, want e101", got)
	}
}

func TestJalrNotMistakenForIrq(t *testing.T) {
	// jalr r1, r2 has a zero low-7 bits field; decoding must not treat
	// any jalr-format word with a nonzero destination as irq, and must
	// not dispatch on the low bit alone.
	word := Encode(Instruction{Op: OpJalr, A: 1, B: 2})
	got := Decode(word)
	if got.Op != OpJalr {
		t.Fatalf("Decode(%04x).Op = %v, want jalr", word, got.Op)
	}

	// A jalr-format word whose low bit happens to be 1 but whose
	// destination field is nonzero is still jalr, not irq.
	word = word3(7, 1, 2) | 1
	got = Decode(word)
	if got.Op != OpJalr {
		t.Fatalf("Decode(%04x).Op = %v, want jalr (dest field nonzero)", word, got.Op)
	}
}

func TestSext7(t *testing.T) {
	cases := []struct {
		raw  int
		want int
	}{
		{0x00, 0},
		{0x3f, 63},
		{0x40, -64},
		{0x7f, -1},
	}
	for _, c := range cases {
		if got := sext7(c.raw); got != c.want {
			t.Errorf("sext7(%#x) = %d, want %d", c.raw, got, c.want)
		}
	}
}
