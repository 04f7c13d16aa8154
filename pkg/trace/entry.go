// Package trace holds the per-instruction CPU snapshot that crosses from
// the emulation thread to the background trace worker, and the worker
// itself.
package trace

// Entry is a trivially-copyable snapshot of CPU state captured by the
// emulation thread immediately after an instruction's opcode bytes have
// been fetched. It is never mutated after construction; the worker reads
// it once, formats it, and discards it.
type Entry struct {
	PC             uint16
	AF, BC, DE, HL uint16
	IX, IY, SP     uint16
	OpcodeBytes    [4]byte
	OpcodeLen      uint8 // 1..4, the number of valid bytes in OpcodeBytes
	Valid          bool
}
