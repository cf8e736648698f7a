// Command vm16asm assembles and disassembles programs for the 16-bit
// VM's instruction set.
//
// With no arguments, vm16asm reads assembly text from stdin and
// writes the assembled program as hex to stdout. With the single
// argument "disassemble", it reads hex from stdin and writes assembly
// text to stdout.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"vm16chain/errors"
	"vm16chain/protocol/vm"
	"vm16chain/protocol/vmutil"
)

const help = `
Command vm16asm assembles and disassembles programs for the VM.

	vm16asm              < program.s  > program.hex
	vm16asm disassemble  < program.hex > program.s

Assembly syntax, one instruction or label per line:

	label:
	add ra, rb, rc
	nand ra, rb, rc
	addi ra, rb, imm
	lui ra, imm
	sw ra, rb, imm
	lw ra, rb, imm
	beq ra, rb, imm
	jalr ra, rb
	irq success|yield|failure
	movi ra, imm
	nop
	jmp label
	farjmp ra, label

Registers are r0 through r7. Immediates may be decimal or 0x-prefixed
hex, and negative where the instruction allows it. Lines starting with
";" or "#", and blank lines, are ignored.
`

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "-help" || os.Args[1] == "--help") {
		fmt.Fprint(os.Stderr, strings.TrimSpace(help)+"\n")
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "disassemble" {
		disassemble()
		return
	}
	assemble()
}

func disassemble() {
	r := errors.NewReader(os.Stdin)
	data, _ := ioutil.ReadAll(r)
	if err := r.Err(); err != nil && err != io.EOF {
		fatalf("reading stdin: %s\n", err)
	}
	prog, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fatalf("decoding hex: %s\n", err)
	}
	text, err := vmutil.DisassembleText(prog)
	if err != nil {
		fatalf("disassembling: %s\n", err)
	}
	fmt.Print(text)
}

func assemble() {
	b := vmutil.NewBuilder()
	labels := make(map[string]vmutil.Label)
	label := func(name string) vmutil.Label {
		if l, ok := labels[name]; ok {
			return l
		}
		l := b.NewLabel()
		labels[name] = l
		return l
	}

	scanner := bufio.NewScanner(os.Stdin)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ":") {
			b.Bind(label(strings.TrimSuffix(line, ":")))
			continue
		}
		if err := assembleLine(b, label, line); err != nil {
			fatalf("line %d: %s\n", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		fatalf("reading stdin: %s\n", err)
	}

	prog, err := b.Build()
	if err != nil {
		fatalf("assembling: %s\n", err)
	}
	fmt.Println(hex.EncodeToString(prog))
}

func assembleLine(b *vmutil.Builder, label func(string) vmutil.Label, line string) error {
	fields := strings.SplitN(line, " ", 2)
	op := strings.ToLower(fields[0])
	var operands []string
	if len(fields) == 2 {
		for _, f := range strings.Split(fields[1], ",") {
			operands = append(operands, strings.TrimSpace(f))
		}
	}

	reg := func(i int) (int, error) { return vmutil.Register(operands[i]) }
	imm := func(i int) (int, error) { return parseImm(operands[i]) }

	switch op {
	case "add":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		rc, err := reg(2)
		if err != nil {
			return err
		}
		b.AddAdd(ra, rb, rc)
	case "nand":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		rc, err := reg(2)
		if err != nil {
			return err
		}
		b.AddNand(ra, rb, rc)
	case "addi":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		n, err := imm(2)
		if err != nil {
			return err
		}
		b.AddAddi(ra, rb, n)
	case "lui":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		n, err := imm(1)
		if err != nil {
			return err
		}
		b.AddLui(ra, n)
	case "sw":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		n, err := imm(2)
		if err != nil {
			return err
		}
		b.AddSw(ra, rb, n)
	case "lw":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		n, err := imm(2)
		if err != nil {
			return err
		}
		b.AddLw(ra, rb, n)
	case "beq":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		n, err := imm(2)
		if err != nil {
			return err
		}
		b.AddBeq(ra, rb, n)
	case "jalr":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		rb, err := reg(1)
		if err != nil {
			return err
		}
		b.AddJalr(ra, rb)
	case "irq":
		kind, err := parseIrqKind(operands[0])
		if err != nil {
			return err
		}
		b.AddIrq(kind)
	case "movi":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		n, err := imm(1)
		if err != nil {
			return err
		}
		b.AddMovi(ra, n)
	case "nop":
		b.AddNop()
	case "jmp":
		b.Jmp(label(operands[0]))
	case "farjmp":
		ra, err := reg(0)
		if err != nil {
			return err
		}
		b.FarJmp(ra, label(operands[1]))
	default:
		return fmt.Errorf("unknown mnemonic %q", op)
	}
	return nil
}

func parseImm(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	return int(n), err
}

func parseIrqKind(s string) (int, error) {
	switch strings.ToLower(s) {
	case "success":
		return vm.IrqSuccess, nil
	case "yield":
		return vm.IrqYield, nil
	case "failure":
		return vm.IrqFailure, nil
	default:
		return 0, fmt.Errorf("unknown irq kind %q", s)
	}
}
