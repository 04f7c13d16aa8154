package emu

import "sync"

// FakeMachine is a deterministic, in-memory stand-in for a real emulator
// machine. It is used by cmd/msx-debugd's demo mode and by the test suites
// of packages that consume a Machine, so they can run without wiring up an
// actual Z80 core.
type FakeMachine struct {
	mu sync.Mutex

	id, name, typ string
	powered       bool
	extensions    []string
	cpuVariant    string
	regs          Registers
	slots         [4]SlotInfo
	expanded      map[int]bool
	mem           [0x10000]byte
	videoMode     string
	videoIsText   bool
	videoPresent  bool
	textCols      int
	textRows      []string
}

// NewFakeMachine returns a FakeMachine with a plausible power-on state: a
// generic MSX1 identity, Z80 CPU, PC at the BIOS reset vector, and no video
// chip attached (VideoMode reports present=false) until SetVideo is called.
func NewFakeMachine(id, name string) *FakeMachine {
	return &FakeMachine{
		id:         id,
		name:       name,
		typ:        "MSX",
		powered:    true,
		cpuVariant: "Z80",
		regs:       Registers{SP: 0xF380, IM: 1},
		expanded:   make(map[int]bool),
		textCols:   40,
	}
}

func (m *FakeMachine) ID() string   { m.mu.Lock(); defer m.mu.Unlock(); return m.id }
func (m *FakeMachine) Name() string { m.mu.Lock(); defer m.mu.Unlock(); return m.name }
func (m *FakeMachine) Type() string { m.mu.Lock(); defer m.mu.Unlock(); return m.typ }

func (m *FakeMachine) Powered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powered
}

func (m *FakeMachine) SetPowered(p bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powered = p
}

func (m *FakeMachine) Extensions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.extensions))
	copy(out, m.extensions)
	return out
}

func (m *FakeMachine) SetExtensions(ext []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extensions = append([]string(nil), ext...)
}

func (m *FakeMachine) CPUVariant() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpuVariant
}

func (m *FakeMachine) Registers() Registers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs
}

func (m *FakeMachine) SetRegisters(r Registers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = r
}

func (m *FakeMachine) Slot(page int) SlotInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page < 0 || page > 3 {
		return SlotInfo{}
	}
	return m.slots[page]
}

func (m *FakeMachine) SetSlot(page int, s SlotInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page < 0 || page > 3 {
		return
	}
	m.slots[page] = s
	if s.Expanded {
		m.expanded[s.Primary] = true
	}
}

func (m *FakeMachine) SlotExpanded(ps int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expanded[ps]
}

func (m *FakeMachine) PeekMemory(addr uint16) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem[addr]
}

// Poke lets a test or demo pre-load memory content; it is not part of the
// Machine interface since real peeks must never have a matching write path
// through this same narrow surface.
func (m *FakeMachine) Poke(addr uint16, v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem[addr] = v
}

func (m *FakeMachine) VideoMode() (string, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videoMode, m.videoIsText, m.videoPresent
}

// SetVideo configures the fake video chip. Pass present=false to simulate a
// machine with no VDP at all (VideoMode then always reports present=false).
func (m *FakeMachine) SetVideo(mode string, isText, present bool, columns int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoMode = mode
	m.videoIsText = isText
	m.videoPresent = present
	m.textCols = columns
}

func (m *FakeMachine) TextColumns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCols
}

func (m *FakeMachine) TextRow(row int) (string, uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 0 || row >= len(m.textRows) {
		return "", 0
	}
	return m.textRows[row], uint16(row * m.textCols)
}

// SetTextRows installs the full text-mode screen content used by TextRow.
func (m *FakeMachine) SetTextRows(rows []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textRows = append([]string(nil), rows...)
}
