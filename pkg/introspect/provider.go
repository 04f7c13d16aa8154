// Package introspect serves point-in-time, side-effect-free snapshots of
// machine, CPU, I/O, and memory state as JSON documents for the /api and
// /api/info HTTP routes. Unlike pkg/format's streamed JSON-Lines, these
// documents are ordinary encoding/json output: field order is fixed by
// struct declaration order, which is all a readable REST response needs.
package introspect

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/galpt/msx-debugd/pkg/emu"
)

// SlotPage describes one 16KB page's slot mapping in a machine_info or
// memory_info document.
type SlotPage struct {
	Address   string `json:"address"`
	Primary   int    `json:"primary"`
	Secondary int    `json:"secondary"`
	Expanded  bool   `json:"expanded"`
	Device    string `json:"device,omitempty"`
}

// MachineInfo is the machine_info document body.
type MachineInfo struct {
	Timestamp   int64               `json:"timestamp"`
	Status      string              `json:"status"`
	Message     string              `json:"message,omitempty"`
	MachineID   string              `json:"machine_id,omitempty"`
	MachineName string              `json:"machine_name,omitempty"`
	MachineType string              `json:"machine_type,omitempty"`
	Slots       map[string]SlotPage `json:"slots,omitempty"`
	Extensions  []string            `json:"extensions"`
	CPUType     string              `json:"cpu_type,omitempty"`
}

// IOInfo is the io_info document body.
type IOInfo struct {
	Timestamp     int64          `json:"timestamp"`
	Status        string         `json:"status"`
	Message       string         `json:"message,omitempty"`
	PrimarySlots  map[string]int `json:"primary_slots,omitempty"`
	SecondarySlots map[string]int `json:"secondary_slots,omitempty"`
	Expanded      []bool         `json:"expanded,omitempty"`
}

// cpuRegisters16 is the cpu_info document's 16-bit register block.
type cpuRegisters16 struct {
	AF  string `json:"af"`
	BC  string `json:"bc"`
	DE  string `json:"de"`
	HL  string `json:"hl"`
	AF2 string `json:"af2"`
	BC2 string `json:"bc2"`
	DE2 string `json:"de2"`
	HL2 string `json:"hl2"`
	IX  string `json:"ix"`
	IY  string `json:"iy"`
	SP  string `json:"sp"`
	PC  string `json:"pc"`
	I   string `json:"i"`
	R   string `json:"r"`
}

type cpuRegisters8 struct {
	A string `json:"a"`
	F string `json:"f"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
	E string `json:"e"`
	H string `json:"h"`
	L string `json:"l"`
}

type cpuFlags struct {
	S  bool `json:"s"`
	Z  bool `json:"z"`
	F5 bool `json:"f5"`
	H  bool `json:"h"`
	F3 bool `json:"f3"`
	PV bool `json:"pv"`
	N  bool `json:"n"`
	C  bool `json:"c"`
}

type cpuInterrupts struct {
	IFF1   bool `json:"iff1"`
	IFF2   bool `json:"iff2"`
	IM     int  `json:"im"`
	Halted bool `json:"halted"`
}

// CPUInfo is the cpu_info document body.
type CPUInfo struct {
	Timestamp   int64          `json:"timestamp"`
	Status      string         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Registers   *cpuRegisters16 `json:"registers,omitempty"`
	Registers8  *cpuRegisters8  `json:"registers_8bit,omitempty"`
	Flags       *cpuFlags       `json:"flags,omitempty"`
	Interrupts  *cpuInterrupts  `json:"interrupts,omitempty"`
	CPUType     string          `json:"cpu_type,omitempty"`
}

// MemoryInfo is the memory_info document body.
type MemoryInfo struct {
	Timestamp int64      `json:"timestamp"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Start     string     `json:"start,omitempty"`
	Size      int        `json:"size,omitempty"`
	Data      string     `json:"data,omitempty"`
	SlotInfo  []SlotPage `json:"slot_info,omitempty"`
}

// Provider snapshots a emu.Machine under a single mutex, mirroring the
// reference DebugInfoProvider's accessMutex: the machine collaborator is
// itself not guaranteed thread-safe, so every public method serializes
// through the same lock regardless of which document is being built.
type Provider struct {
	mu sync.Mutex
	m  emu.Machine
}

// NewProvider wraps m. m may be nil (no machine loaded); every document
// method then reports status "no_machine".
func NewProvider(m emu.Machine) *Provider {
	return &Provider{m: m}
}

// Attach swaps in a new machine (or nil), e.g. on emulator power-cycle.
func (p *Provider) Attach(m emu.Machine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m = m
}

func nowMilli() int64 { return time.Now().UnixMilli() }

// MachineInfo builds the machine_info document.
func (p *Provider) MachineInfo() MachineInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := MachineInfo{Timestamp: nowMilli()}
	if p.m == nil {
		info.Status = "no_machine"
		info.Message = "No machine loaded"
		return info
	}

	info.Status = status(p.m.Powered())
	info.MachineID = p.m.ID()
	info.MachineName = p.m.Name()
	info.MachineType = p.m.Type()
	info.Slots = p.slotPages()
	info.Extensions = p.m.Extensions()
	info.CPUType = p.m.CPUVariant()
	return info
}

// IOInfo builds the io_info document.
func (p *Provider) IOInfo() IOInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := IOInfo{Timestamp: nowMilli()}
	if p.m == nil {
		info.Status = "no_machine"
		info.Message = "No machine loaded"
		return info
	}
	info.Status = "running"

	primary := make(map[string]int, 4)
	secondary := make(map[string]int, 4)
	expanded := make([]bool, 4)
	for page := 0; page < 4; page++ {
		s := p.m.Slot(page)
		key := pageKey(page)
		primary[key] = s.Primary
		if s.Expanded {
			secondary[key] = s.Secondary
		} else {
			secondary[key] = -1
		}
		expanded[page] = p.m.SlotExpanded(page)
	}
	info.PrimarySlots = primary
	info.SecondarySlots = secondary
	info.Expanded = expanded
	return info
}

// CPUInfo builds the cpu_info document.
func (p *Provider) CPUInfo() CPUInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := CPUInfo{Timestamp: nowMilli()}
	if p.m == nil {
		info.Status = "no_machine"
		info.Message = "No machine loaded"
		return info
	}
	info.Status = status(p.m.Powered())

	r := p.m.Registers()
	info.Registers = &cpuRegisters16{
		AF: hex16(r.AF), BC: hex16(r.BC), DE: hex16(r.DE), HL: hex16(r.HL),
		AF2: hex16(r.AF2), BC2: hex16(r.BC2), DE2: hex16(r.DE2), HL2: hex16(r.HL2),
		IX: hex16(r.IX), IY: hex16(r.IY), SP: hex16(r.SP), PC: hex16(r.PC),
		I: hex8(r.I), R: hex8(r.R),
	}
	info.Registers8 = &cpuRegisters8{
		A: hex8(emu.High(r.AF)), F: hex8(emu.Low(r.AF)),
		B: hex8(emu.High(r.BC)), C: hex8(emu.Low(r.BC)),
		D: hex8(emu.High(r.DE)), E: hex8(emu.Low(r.DE)),
		H: hex8(emu.High(r.HL)), L: hex8(emu.Low(r.HL)),
	}
	f := emu.Low(r.AF)
	info.Flags = &cpuFlags{
		S: f&emu.FlagS != 0, Z: f&emu.FlagZ != 0, F5: f&emu.FlagF5 != 0,
		H: f&emu.FlagH != 0, F3: f&emu.FlagF3 != 0, PV: f&emu.FlagPV != 0,
		N: f&emu.FlagN != 0, C: f&emu.FlagC != 0,
	}
	info.Interrupts = &cpuInterrupts{
		IFF1: r.IFF1, IFF2: r.IFF2, IM: int(r.IM), Halted: r.Halted,
	}
	info.CPUType = p.m.CPUVariant()
	return info
}

// MemoryInfo builds the memory_info document for [start, start+size). The
// range is clamped exactly as the reference implementation does: start is
// capped at 0xFFFF, size at 0x10000, and size is further reduced so that
// start+size never exceeds 0x10000.
func (p *Provider) MemoryInfo(start, size uint32) MemoryInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	if start > 0xFFFF {
		start = 0xFFFF
	}
	if size > 0x10000 {
		size = 0x10000
	}
	if start+size > 0x10000 {
		size = 0x10000 - start
	}

	info := MemoryInfo{Timestamp: nowMilli()}
	if p.m == nil {
		info.Status = "no_machine"
		info.Message = "No machine loaded"
		return info
	}
	info.Status = "running"
	info.Start = hex16(uint16(start))
	info.Size = int(size)

	data := make([]byte, 0, size*2)
	for i := uint32(0); i < size; i++ {
		addr := uint16(start + i)
		data = append(data, hexByte(p.m.PeekMemory(addr))...)
	}
	info.Data = string(data)

	if size > 0 {
		startPage := start / 0x4000
		endPage := (start + size - 1) / 0x4000
		for page := startPage; page <= endPage && page < 4; page++ {
			s := p.m.Slot(int(page))
			sec := -1
			if s.Expanded {
				sec = s.Secondary
			}
			info.SlotInfo = append(info.SlotInfo, SlotPage{
				Address:   hex16(uint16(page * 0x4000)),
				Primary:   s.Primary,
				Secondary: sec,
				Expanded:  s.Expanded,
			})
		}
	}
	return info
}

func (p *Provider) slotPages() map[string]SlotPage {
	pages := make(map[string]SlotPage, 4)
	for page := 0; page < 4; page++ {
		s := p.m.Slot(page)
		sec := -1
		if s.Expanded {
			sec = s.Secondary
		}
		pages[pageKey(page)] = SlotPage{
			Address:   hex16(uint16(page * 0x4000)),
			Primary:   s.Primary,
			Secondary: sec,
			Expanded:  s.Expanded,
			Device:    s.Device,
		}
	}
	return pages
}

func status(powered bool) string {
	if powered {
		return "running"
	}
	return "powered_off"
}

func pageKey(page int) string {
	return "page" + string(rune('0'+page))
}

func hex8(v uint8) string  { return hex16(uint16(v))[2:] }
func hex16(v uint16) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{
		digits[(v>>12)&0xF], digits[(v>>8)&0xF], digits[(v>>4)&0xF], digits[v&0xF],
	})
}
func hexByte(v uint8) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>4], digits[v&0xF]})
}

// MarshalIndent renders any document with the conventional two-space
// indentation the JSON API responses and SSE stream events share.
func MarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
