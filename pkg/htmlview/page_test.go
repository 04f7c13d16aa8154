package htmlview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galpt/msx-debugd/pkg/emu"
	"github.com/galpt/msx-debugd/pkg/introspect"
)

var testPorts = Ports{Machine: 65501, IO: 65502, CPU: 65503, Memory: 65504}

func TestRenderer_MachinePage(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	r := NewRenderer(introspect.NewProvider(m), testPorts)

	html, err := r.Render(TopicMachine, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, html, "Generic MSX1")
	assert.Contains(t, html, `class="active"`)
	assert.Contains(t, html, `http-equiv="refresh" content="1"`)
	assert.Contains(t, html, `href="http://127.0.0.1:65502/"`, "I/O nav link must point at the io listener's own port")
	assert.Contains(t, html, `href="http://127.0.0.1:65503/"`, "CPU nav link must point at the cpu listener's own port")
	assert.Contains(t, html, `href="http://127.0.0.1:65504/"`, "Memory nav link must point at the memory listener's own port")
}

func TestRenderer_EscapesDeviceNames(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetSlot(0, emu.SlotInfo{Device: "<script>alert(1)</script>"})
	r := NewRenderer(introspect.NewProvider(m), testPorts)

	html, err := r.Render(TopicMachine, 0, 0)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderer_CPUPage(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	m.SetRegisters(emu.Registers{AF: 0x1241, PC: 0x4000})
	r := NewRenderer(introspect.NewProvider(m), testPorts)

	html, err := r.Render(TopicCPU, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, html, "4000")
	assert.Contains(t, html, "flag-set")
}

func TestRenderer_MemoryPageTruncatesLargeDump(t *testing.T) {
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	r := NewRenderer(introspect.NewProvider(m), testPorts)

	html, err := r.Render(TopicMemory, 0, MaxMemoryDump+1000)
	require.NoError(t, err)
	assert.Contains(t, html, "truncated")
}

func TestRenderer_NoMachine(t *testing.T) {
	r := NewRenderer(introspect.NewProvider(nil), testPorts)
	html, err := r.Render(TopicMachine, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, html, "No machine loaded")
}
