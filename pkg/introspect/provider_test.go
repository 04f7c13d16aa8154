package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galpt/msx-debugd/pkg/emu"
)

func TestProvider_MachineInfoNoMachine(t *testing.T) {
	p := NewProvider(nil)
	info := p.MachineInfo()
	assert.Equal(t, "no_machine", info.Status)
	assert.Equal(t, "No machine loaded", info.Message)
}

func TestProvider_MachineInfoWithMachine(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetExtensions([]string{"fmpac"})
	m.SetSlot(0, emu.SlotInfo{Primary: 0, Device: "MSX BIOS"})

	p := NewProvider(m)
	info := p.MachineInfo()
	assert.Equal(t, "running", info.Status)
	assert.Equal(t, "msx1", info.MachineID)
	assert.Equal(t, []string{"fmpac"}, info.Extensions)
	require.Contains(t, info.Slots, "page0")
	assert.Equal(t, "MSX BIOS", info.Slots["page0"].Device)
	assert.Equal(t, -1, info.Slots["page0"].Secondary)
}

func TestProvider_CPUInfoRegistersAndFlags(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetRegisters(emu.Registers{AF: 0x12C1, PC: 0x4000, IFF1: true, IM: 1})

	p := NewProvider(m)
	info := p.CPUInfo()
	require.NotNil(t, info.Registers)
	assert.Equal(t, "12C1", info.Registers.AF)
	assert.Equal(t, "4000", info.Registers.PC)
	require.NotNil(t, info.Flags)
	assert.True(t, info.Flags.C)
	require.NotNil(t, info.Interrupts)
	assert.True(t, info.Interrupts.IFF1)
	assert.Equal(t, 1, info.Interrupts.IM)
}

func TestProvider_MemoryInfoClampsRange(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	p := NewProvider(m)

	info := p.MemoryInfo(0xFFF0, 0x20)
	assert.Equal(t, 0x10, info.Size, "size must be clamped so start+size <= 0x10000")
	assert.Equal(t, "FFF0", info.Start)
	assert.Len(t, info.Data, 0x10*2)
}

func TestProvider_MemoryInfoReadsActualBytes(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.Poke(0x4000, 0xAB)
	m.Poke(0x4001, 0xCD)

	p := NewProvider(m)
	info := p.MemoryInfo(0x4000, 2)
	assert.Equal(t, "ABCD", info.Data)
}

func TestProvider_IOInfoSlotSelection(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetSlot(1, emu.SlotInfo{Primary: 2, Secondary: 1, Expanded: true})

	p := NewProvider(m)
	info := p.IOInfo()
	assert.Equal(t, 2, info.PrimarySlots["page1"])
	assert.Equal(t, 1, info.SecondarySlots["page1"])
	assert.Equal(t, -1, info.SecondarySlots["page0"])
}

func TestProvider_IOInfoExpandedIsPerGlobalSlotNotPerPageMapping(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	// Pages 0-1 map to primary slot 0, pages 2-3 map to primary slot 3, and
	// only global slot 3 is ever marked expanded. Expanded must be indexed
	// by each page's own index (matching the primary slot number directly,
	// the way the reference implementation loops "for ps in 0..3"), not by
	// the primary slot a page happens to be mapped to — otherwise page 2
	// here would wrongly report expanded=true by inheriting slot 3's state.
	m.SetSlot(0, emu.SlotInfo{Primary: 0})
	m.SetSlot(1, emu.SlotInfo{Primary: 0})
	m.SetSlot(2, emu.SlotInfo{Primary: 3, Secondary: 1, Expanded: true})
	m.SetSlot(3, emu.SlotInfo{Primary: 3, Secondary: 2, Expanded: true})

	p := NewProvider(m)
	info := p.IOInfo()

	require.Len(t, info.Expanded, 4)
	assert.Equal(t, []bool{false, false, false, true}, info.Expanded)
}
