package trace

import "fmt"

// singleByteLen gives the instruction length for lead bytes whose length is
// fixed by the first byte alone (the CB prefix family); prefixExtra below
// covers the DD/ED/FD prefix families. Full opcode tables are explicitly out
// of scope for this subsystem (spec Non-goals); this table exists only to
// satisfy DebugStreamWorker's "real instruction length" pre-step, and gaps
// fall back to length 1 exactly as the spec's processing step requires.
var singleByteLen = map[byte]int{
	0xCB: 2, // CB-prefixed bit/rotate instructions are always 2 bytes
}

// prefixExtra maps a DD/FD/ED lead byte to how many further bytes typically
// follow for the common encodings. DD CB/FD CB (index-register bit ops) are
// 4 bytes total and are checked before this table is consulted.
var prefixExtra = map[byte]int{
	0xDD: 1,
	0xFD: 1,
	0xED: 1,
}

// OpcodeLength returns the instruction length implied by the opcode's
// leading bytes, and false when the table has no entry — the caller must
// then assume length 1.
func OpcodeLength(opcode []byte) (int, bool) {
	if len(opcode) == 0 {
		return 0, false
	}
	first := opcode[0]

	if first == 0xDD || first == 0xFD {
		if len(opcode) >= 2 && opcode[1] == 0xCB {
			return 4, true // DD/FD CB d op — indexed bit instruction
		}
	}
	if extra, ok := prefixExtra[first]; ok {
		return 1 + extra, true
	}
	if n, ok := singleByteLen[first]; ok {
		return n, true
	}
	return 0, false
}

// Disassemble renders a short, generic textual mnemonic for the
// instruction found in opcode[:length] at addr. Building an accurate Z80
// disassembly table is explicitly out of scope for this subsystem; this
// produces a stable, deterministic placeholder (hex byte dump prefixed by
// the address) sufficient for the dbg/trace/exec push event.
func Disassemble(addr uint16, opcode []byte) string {
	out := fmt.Sprintf("%04X:", addr)
	for _, b := range opcode {
		out += fmt.Sprintf(" %02X", b)
	}
	return out
}
