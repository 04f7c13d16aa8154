// Package emu defines the narrow read-only interface this module needs
// from the surrounding emulator. The emulator itself (CPU cores, memory
// controller, video chip, slot manager, motherboard lifecycle) is an
// external collaborator and is not implemented here; FakeMachine below is
// a deterministic stand-in used by tests and the cmd/msx-debugd demo.
package emu

// Registers mirrors the Z80 register file. 8-bit halves are derived from
// the 16-bit pairs by callers (High(AF) is A, Low(AF) is F, and so on) so
// there is exactly one source of truth per pair, matching how the real
// CPU core stores them.
type Registers struct {
	AF, BC, DE, HL   uint16
	AF2, BC2, DE2, HL2 uint16
	IX, IY, SP, PC   uint16
	I, R             uint8
	IFF1, IFF2       bool
	IM               uint8
	Halted           bool
}

// High returns the high byte of a 16-bit register pair (A of AF, B of BC, ...).
func High(pair uint16) uint8 { return uint8(pair >> 8) }

// Low returns the low byte of a 16-bit register pair (F of AF, C of BC, ...).
func Low(pair uint16) uint8 { return uint8(pair & 0xFF) }

// Flag bits within the F register (low byte of AF), Z80 layout.
const (
	FlagC  = 0x01
	FlagN  = 0x02
	FlagPV = 0x04
	FlagF3 = 0x08
	FlagH  = 0x10
	FlagF5 = 0x20
	FlagZ  = 0x40
	FlagS  = 0x80
)

// SlotInfo describes one of the four 16KB memory pages' slot mapping.
type SlotInfo struct {
	Primary   int
	Secondary int // only meaningful when Expanded
	Expanded  bool
	Device    string // visible device name, empty if none
}

// Machine is the read-only view IntrospectionProvider and
// JsonLineFormatter need. All methods must be safe to call from any
// goroutine; implementations are expected to guard their own state (the
// real emulator is not thread-safe, so a real Machine wraps it behind a
// mutex the way DebugInfoProvider/DebugStreamFormatter do).
type Machine interface {
	ID() string
	Name() string
	Type() string
	Powered() bool
	Extensions() []string
	CPUVariant() string // "Z80" or "R800"
	Registers() Registers
	// Slot returns the slot mapping for page (0..3).
	Slot(page int) SlotInfo
	// SlotExpanded reports whether primary slot ps is expanded (has
	// secondary slots).
	SlotExpanded(ps int) bool
	// PeekMemory is a side-effect-free read that does not advance the bus
	// clock (no I/O port latches triggered, no memory-mapped device state
	// changed).
	PeekMemory(addr uint16) uint8
	// VideoMode reports the current display mode name, whether it is a
	// text mode, and whether a video chip is present at all.
	VideoMode() (mode string, isText bool, present bool)
	// TextRow returns the 40- or 80-column text for video row (0..23) and
	// the VRAM address it was read from. Only meaningful when VideoMode's
	// isText is true.
	TextRow(row int) (text string, addr uint16)
	// TextColumns is 40 for TEXT1/TEXT1Q, 80 for TEXT2.
	TextColumns() int
}
