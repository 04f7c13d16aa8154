package format

import (
	"strconv"
	"time"

	"github.com/galpt/msx-debugd/pkg/emu"
)

// ProtocolVersion is reported in the hello message's "ver" field.
const ProtocolVersion = protocolVersion

// EngineVersion identifies the host process in the hello message's val
// field, analogous to "openMSX <version>" in the original stream.
var EngineVersion = "msx-debugd 1.0"

// Formatter renders JsonLine records for every category this subsystem
// emits. It holds no mutable state of its own: callers pass in whatever
// emu.Machine snapshot or raw value needs formatting, so Formatter is safe
// for concurrent use without any internal locking.
type Formatter struct{}

// New returns a ready-to-use Formatter.
func New() *Formatter { return &Formatter{} }

func now() int64 { return time.Now().UnixMilli() }

// Hello builds the sys/conn/hello greeting sent to a newly connected
// client.
func (f *Formatter) Hello() string {
	return NewLine("sys", "conn", "hello", EngineVersion).
		With("ver", ProtocolVersion).
		WithTimestamp(now()).
		Build()
}

// Goodbye builds the sys/conn/goodbye notice sent just before a connection
// is torn down.
func (f *Formatter) Goodbye() string {
	return NewLine("sys", "conn", "goodbye", "disconnecting").
		WithTimestamp(now()).
		Build()
}

// FullSnapshot renders the complete machine/CPU/memory/video state as an
// ordered slice of lines, for delivery immediately after hello.
func (f *Formatter) FullSnapshot(m emu.Machine) []string {
	var lines []string
	lines = append(lines, NewLine("sys", "info", "timestamp", itoa64(now())).Build())

	if m == nil {
		lines = append(lines, NewLine("mach", "info", "status", "no_machine").Build())
		return lines
	}

	lines = append(lines, NewLine("mach", "info", "id", m.ID()).Build())
	lines = append(lines, NewLine("mach", "info", "name", m.Name()).Build())
	lines = append(lines, NewLine("mach", "info", "type", m.Type()).Build())
	status := "powered_off"
	if m.Powered() {
		status = "running"
	}
	lines = append(lines, NewLine("mach", "info", "status", status).Build())

	exts := m.Extensions()
	for i, ext := range exts {
		lines = append(lines, NewLine("mach", "ext", itoa(i), ext).Build())
	}
	lines = append(lines, NewLine("mach", "ext", "count", itoa(len(exts))).Build())

	lines = append(lines, NewLine("cpu", "info", "type", m.CPUVariant()).Build())

	r := m.Registers()
	lines = append(lines, NewLine("cpu", "reg", "af", Hex16(r.AF)).Build())
	lines = append(lines, NewLine("cpu", "reg", "bc", Hex16(r.BC)).Build())
	lines = append(lines, NewLine("cpu", "reg", "de", Hex16(r.DE)).Build())
	lines = append(lines, NewLine("cpu", "reg", "hl", Hex16(r.HL)).Build())
	lines = append(lines, NewLine("cpu", "reg", "af2", Hex16(r.AF2)).Build())
	lines = append(lines, NewLine("cpu", "reg", "bc2", Hex16(r.BC2)).Build())
	lines = append(lines, NewLine("cpu", "reg", "de2", Hex16(r.DE2)).Build())
	lines = append(lines, NewLine("cpu", "reg", "hl2", Hex16(r.HL2)).Build())
	lines = append(lines, NewLine("cpu", "reg", "ix", Hex16(r.IX)).Build())
	lines = append(lines, NewLine("cpu", "reg", "iy", Hex16(r.IY)).Build())
	lines = append(lines, NewLine("cpu", "reg", "sp", Hex16(r.SP)).Build())
	lines = append(lines, NewLine("cpu", "reg", "pc", Hex16(r.PC)).Build())
	lines = append(lines, NewLine("cpu", "reg", "i", Hex8(r.I)).Build())
	lines = append(lines, NewLine("cpu", "reg", "r", Hex8(r.R)).Build())

	lines = append(lines, NewLine("cpu", "reg8", "a", Hex8(emu.High(r.AF))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "f", Hex8(emu.Low(r.AF))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "b", Hex8(emu.High(r.BC))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "c", Hex8(emu.Low(r.BC))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "d", Hex8(emu.High(r.DE))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "e", Hex8(emu.Low(r.DE))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "h", Hex8(emu.High(r.HL))).Build())
	lines = append(lines, NewLine("cpu", "reg8", "l", Hex8(emu.Low(r.HL))).Build())

	f8 := emu.Low(r.AF)
	lines = append(lines, NewLine("cpu", "flags", "all", flagString(f8)).
		With("raw", Hex8(f8)).Build())

	lines = append(lines, NewLine("cpu", "flag", "s", Bool01(f8&emu.FlagS != 0)).Build())
	lines = append(lines, NewLine("cpu", "flag", "z", Bool01(f8&emu.FlagZ != 0)).Build())
	lines = append(lines, NewLine("cpu", "flag", "h", Bool01(f8&emu.FlagH != 0)).Build())
	lines = append(lines, NewLine("cpu", "flag", "pv", Bool01(f8&emu.FlagPV != 0)).Build())
	lines = append(lines, NewLine("cpu", "flag", "n", Bool01(f8&emu.FlagN != 0)).Build())
	lines = append(lines, NewLine("cpu", "flag", "c", Bool01(f8&emu.FlagC != 0)).Build())

	lines = append(lines, NewLine("cpu", "int", "iff1", Bool01(r.IFF1)).Build())
	lines = append(lines, NewLine("cpu", "int", "iff2", Bool01(r.IFF2)).Build())
	lines = append(lines, NewLine("cpu", "int", "im", itoa(int(r.IM))).Build())
	lines = append(lines, NewLine("cpu", "int", "halt", Bool01(r.Halted)).Build())

	for page := 0; page < 4; page++ {
		s := m.Slot(page)
		slotStr := itoa(s.Primary)
		if s.Expanded {
			slotStr += "-" + itoa(s.Secondary)
		}
		line := NewLine("mem", "slot", "page"+itoa(page), slotStr).
			With("addr", Hex16(uint16(page*0x4000))).
			With("expanded", Bool01(s.Expanded))
		if s.Device != "" {
			line.With("device", s.Device)
		}
		lines = append(lines, line.Build())
	}

	for ps := 0; ps < 4; ps++ {
		lines = append(lines, NewLine("mem", "expanded", "slot"+itoa(ps),
			Bool01(m.SlotExpanded(ps))).Build())
	}

	if mode, isText, present := m.VideoMode(); present && isText {
		lines = append(lines, NewLine("mach", "video", "mode", mode).
			With("text_support", Bool01(isText)).Build())

		if isText {
			cols := m.TextColumns()
			for row := 0; row < 24; row++ {
				text, addr := m.TextRow(row)
				lines = append(lines, NewLine("mem", "text", "row", padRight(text, cols)).
					With("idx", itoa(row)).
					With("addr", Hex16(addr)).Build())
			}
		}
	}

	return lines
}

// CPURegisters renders the space-separated single-line register summary
// used for polled cpu/reg/all queries (distinct from the trace worker's
// per-instruction push of the same field).
func (f *Formatter) CPURegisters(m emu.Machine) string {
	if m == nil {
		return NewLine("cpu", "reg", "error", "no_machine").Build()
	}
	r := m.Registers()
	return NewLine("cpu", "reg", "all", registerSummary(r)).
		WithTimestamp(now()).Build()
}

// RegisterSummary renders the same space-separated AF=.. BC=.. summary
// directly from an already-captured register snapshot, without reading a
// Machine.
func RegisterSummary(r emu.Registers) string {
	return registerSummary(r)
}

func registerSummary(r emu.Registers) string {
	return "AF=" + Hex16(r.AF) + " BC=" + Hex16(r.BC) + " DE=" + Hex16(r.DE) +
		" HL=" + Hex16(r.HL) + " IX=" + Hex16(r.IX) + " IY=" + Hex16(r.IY) +
		" SP=" + Hex16(r.SP) + " PC=" + Hex16(r.PC)
}

// CPUFlags renders the polled cpu/flags/all line.
func (f *Formatter) CPUFlags(m emu.Machine) string {
	if m == nil {
		return NewLine("cpu", "flags", "error", "no_machine").Build()
	}
	f8 := emu.Low(m.Registers().AF)
	return NewLine("cpu", "flags", "all", flagString(f8)).With("raw", Hex8(f8)).Build()
}

// CPUState renders the polled cpu/state/int line.
func (f *Formatter) CPUState(m emu.Machine) string {
	if m == nil {
		return NewLine("cpu", "state", "error", "no_machine").Build()
	}
	r := m.Registers()
	val := "IFF1=" + Bool01(r.IFF1) + " IFF2=" + Bool01(r.IFF2) +
		" IM=" + itoa(int(r.IM)) + " HALT=" + Bool01(r.Halted)
	return NewLine("cpu", "state", "int", val).With("type", m.CPUVariant()).Build()
}

// MemoryRead renders a mem/read/byte event.
func (f *Formatter) MemoryRead(addr uint16, value uint8) string {
	return NewLine("mem", "read", "byte", Hex8(value)).
		With("addr", Hex16(addr)).WithTimestamp(now()).Build()
}

// MemoryWrite renders a mem/write/byte event.
func (f *Formatter) MemoryWrite(addr uint16, value uint8) string {
	return NewLine("mem", "write", "byte", Hex8(value)).
		With("addr", Hex16(addr)).WithTimestamp(now()).Build()
}

// MemoryBank renders the polled mem/slot/map summary of all four pages.
func (f *Formatter) MemoryBank(m emu.Machine) string {
	if m == nil {
		return NewLine("mem", "slot", "error", "no_machine").Build()
	}
	val := ""
	for page := 0; page < 4; page++ {
		s := m.Slot(page)
		if page > 0 {
			val += " "
		}
		val += "P" + itoa(page) + "=" + itoa(s.Primary)
		if s.Expanded {
			val += "-" + itoa(s.Secondary)
		}
	}
	return NewLine("mem", "slot", "map", val).WithTimestamp(now()).Build()
}

// SlotChange renders a mem/bank/page_pri event for a single page's slot
// mapping changing.
func (f *Formatter) SlotChange(page int, primary, secondary int, expanded bool) string {
	return NewLine("mem", "bank", "page_pri", itoa(primary)).
		WithInt("idx", page).
		WithInt("sec", secondary).
		With("expanded", Bool01(expanded)).
		WithTimestamp(now()).Build()
}

// IOPortRead renders an io/port/read event.
func (f *Formatter) IOPortRead(port, value uint8) string {
	return NewLine("io", "port", "read", Hex8(value)).
		With("addr", Hex8(port)).WithTimestamp(now()).Build()
}

// IOPortWrite renders an io/port/write event.
func (f *Formatter) IOPortWrite(port, value uint8) string {
	return NewLine("io", "port", "write", Hex8(value)).
		With("addr", Hex8(port)).WithTimestamp(now()).Build()
}

// RegisterUpdate renders a cpu/reg/<name> push event for a 16-bit register.
func (f *Formatter) RegisterUpdate(name string, value uint16) string {
	return NewLine("cpu", "reg", name, Hex16(value)).WithTimestamp(now()).Build()
}

// Register8Update renders a cpu/reg/<name> push event for an 8-bit
// register (i, r).
func (f *Formatter) Register8Update(name string, value uint8) string {
	return NewLine("cpu", "reg", name, Hex8(value)).WithTimestamp(now()).Build()
}

// FlagUpdate renders a cpu/flag/<name> push event.
func (f *Formatter) FlagUpdate(name string, value bool) string {
	return NewLine("cpu", "flag", name, Bool01(value)).WithTimestamp(now()).Build()
}

// MachineInfo renders the polled mach/info/name summary.
func (f *Formatter) MachineInfo(m emu.Machine) string {
	if m == nil {
		return NewLine("mach", "info", "status", "no_machine").Build()
	}
	return NewLine("mach", "info", "name", m.Name()+" ("+m.Type()+")").
		With("id", m.ID()).Build()
}

// MachineStatus renders the polled mach/status/mode summary.
func (f *Formatter) MachineStatus(m emu.Machine, mode string) string {
	if m == nil {
		return NewLine("mach", "status", "mode", "no_machine").Build()
	}
	return NewLine("mach", "status", "mode", mode).
		With("powered", Bool01(m.Powered())).WithTimestamp(now()).Build()
}

// BreakpointHit renders a dbg/bp/hit event.
func (f *Formatter) BreakpointHit(index int, addr uint16) string {
	return NewLine("dbg", "bp", "hit", itoa(index)).
		With("addr", Hex16(addr)).WithTimestamp(now()).Build()
}

// WatchpointHit renders a dbg/wp/hit event.
func (f *Formatter) WatchpointHit(index int, addr uint16, kind string) string {
	return NewLine("dbg", "wp", "hit", itoa(index)).
		With("addr", Hex16(addr)).With("type", kind).WithTimestamp(now()).Build()
}

// TraceExec renders a dbg/trace/exec event for one retired instruction.
func (f *Formatter) TraceExec(addr uint16, disasm string) string {
	return NewLine("dbg", "trace", "exec", disasm).
		With("addr", Hex16(addr)).WithTimestamp(now()).Build()
}

func flagString(f uint8) string {
	bit := func(mask uint8, set, clear byte) byte {
		if f&mask != 0 {
			return set
		}
		return clear
	}
	out := make([]byte, 8)
	out[0] = bit(emu.FlagS, 'S', '-')
	out[1] = bit(emu.FlagZ, 'Z', '-')
	out[2] = bit(emu.FlagF5, '5', '-')
	out[3] = bit(emu.FlagH, 'H', '-')
	out[4] = bit(emu.FlagF3, '3', '-')
	out[5] = bit(emu.FlagPV, 'P', '-')
	out[6] = bit(emu.FlagN, 'N', '-')
	out[7] = bit(emu.FlagC, 'C', '-')
	return string(out)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	b := make([]byte, width)
	copy(b, s)
	for i := len(s); i < width; i++ {
		b[i] = ' '
	}
	return string(b)
}

func itoa(v int) string      { return strconv.Itoa(v) }
func itoa64(v int64) string { return strconv.FormatInt(v, 10) }
