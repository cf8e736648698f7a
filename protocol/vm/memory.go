package vm

import "encoding/binary"

// NumWords is the size of a VM's memory in 16-bit words (128 KiB).
const NumWords = 1 << 16

// Memory map word offsets, per the conventional load addresses. These
// are conventions honored by Run's loader, not hardware-enforced
// segments: nothing stops a script from reading or writing outside
// its own region.
const (
	HashBase   = 0x0000
	OutputBase = 0x2000
	InputBase  = 0x4000
)

// Memory is the flat, word-addressed store shared by both threads of
// a VM instance. Addresses wrap modulo NumWords.
type Memory struct {
	bytes [NumWords * 2]byte
}

// Word reads the big-endian word at word address addr.
func (m *Memory) Word(addr uint16) uint16 {
	i := int(addr) * 2
	return binary.BigEndian.Uint16(m.bytes[i : i+2])
}

// SetWord writes the big-endian word at word address addr.
func (m *Memory) SetWord(addr uint16, v uint16) {
	i := int(addr) * 2
	binary.BigEndian.PutUint16(m.bytes[i:i+2], v)
}

// LoadBytes copies data into memory starting at byte address
// byteAddr. It is used to seed the hash, output, and input regions
// from a Job.
func (m *Memory) LoadBytes(byteAddr int, data []byte) {
	copy(m.bytes[byteAddr:], data)
}

// LoadWords copies a sequence of big-endian words into memory
// starting at word address addr.
func (m *Memory) LoadWords(addr uint16, words []uint16) {
	for i, w := range words {
		m.SetWord(addr+uint16(i), w)
	}
}
