package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/galpt/msx-debugd/pkg/emu"
)

func TestLine_FixedKeyOrderAndSortedExtras(t *testing.T) {
	line := NewLine("sys", "conn", "hello", "msx-debugd 1.0").
		With("ver", "1.0").
		With("ts", "1000")
	got := line.Build()

	assert.True(t, strings.HasPrefix(got, `{"emu":"msx","cat":"sys","sec":"conn","fld":"hello","val":"msx-debugd 1.0"`))
	// extras must come out alphabetically regardless of insertion order: ts before ver
	assert.True(t, strings.Index(got, `"ts"`) < strings.Index(got, `"ver"`))
	assert.True(t, strings.HasSuffix(got, "}"))
}

func TestLine_EscapesControlAndQuoteCharacters(t *testing.T) {
	got := NewLine("dbg", "trace", "exec", "LD A,\"X\"\n").Build()
	assert.Contains(t, got, `\"X\"`)
	assert.Contains(t, got, `\n`)
}

func TestHex8AndHex16_UppercaseZeroPadded(t *testing.T) {
	assert.Equal(t, "0A", Hex8(0x0A))
	assert.Equal(t, "FF", Hex8(0xFF))
	assert.Equal(t, "0040", Hex16(0x40))
	assert.Equal(t, "FFFF", Hex16(0xFFFF))
}

func TestFormatter_HelloAndGoodbye(t *testing.T) {
	f := New()
	hello := f.Hello()
	assert.Contains(t, hello, `"cat":"sys"`)
	assert.Contains(t, hello, `"fld":"hello"`)
	assert.Contains(t, hello, `"ver":"1.0"`)

	goodbye := f.Goodbye()
	assert.Contains(t, goodbye, `"fld":"goodbye"`)
}

func TestFormatter_FullSnapshotNoMachine(t *testing.T) {
	f := New()
	lines := f.FullSnapshot(nil)
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"val":"no_machine"`)
}

func TestFormatter_FullSnapshotWithMachine(t *testing.T) {
	f := New()
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetRegisters(emu.Registers{AF: 0x1243, BC: 0x0203, SP: 0xF380, PC: 0x0100})
	m.SetExtensions([]string{"fmpac"})

	lines := f.FullSnapshot(m)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, `"fld":"af","val":"1243"`)
	assert.Contains(t, joined, `"fld":"a","val":"12"`)
	assert.Contains(t, joined, `"cat":"mach","sec":"ext","fld":"0","val":"fmpac"`)
	assert.Contains(t, joined, `"fld":"count","val":"1"`)
}

func TestFormatter_FullSnapshotTextVideoMode(t *testing.T) {
	f := New()
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetVideo("TEXT1", true, true, 40)
	m.SetTextRows([]string{"HELLO"})

	lines := f.FullSnapshot(m)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, `"cat":"mach","sec":"video","fld":"mode","val":"TEXT1"`)
	assert.Contains(t, joined, `"cat":"mem","sec":"text","fld":"row"`)
	assert.Contains(t, joined, "HELLO")
}

func TestFlagString_BitOrder(t *testing.T) {
	assert.Equal(t, "S-------", flagString(emu.FlagS))
	assert.Equal(t, "-------C", flagString(emu.FlagC))
	assert.Equal(t, "--------", flagString(0))
}

func TestFormatter_SlotChange(t *testing.T) {
	f := New()
	got := f.SlotChange(1, 2, 3, true)
	assert.Contains(t, got, `"cat":"mem","sec":"bank","fld":"page_pri","val":"2"`)
	assert.Contains(t, got, `"idx":"1"`)
	assert.Contains(t, got, `"sec":"3"`)
	assert.Contains(t, got, `"expanded":"1"`)
}

func TestRegisterSummary(t *testing.T) {
	r := emu.Registers{AF: 0x1234, BC: 0x5678, PC: 0x0010}
	got := RegisterSummary(r)
	assert.Equal(t, "AF=1234 BC=5678 DE=0000 HL=0000 IX=0000 IY=0000 SP=0000 PC=0010", got)
}
