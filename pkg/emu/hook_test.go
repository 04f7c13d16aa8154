package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/galpt/msx-debugd/pkg/trace"
)

type fakeEnqueuer struct {
	active  bool
	entries []trace.Entry
}

func (f *fakeEnqueuer) HasActiveClients() bool { return f.active }

func (f *fakeEnqueuer) Enqueue(e trace.Entry) bool {
	f.entries = append(f.entries, e)
	return true
}

func TestHook_StepSkipsWhenDisabled(t *testing.T) {
	fe := &fakeEnqueuer{active: true}
	h := NewHook(fe, func() bool { return false })

	h.Step(0x100, 0, 0, 0, 0, 0, 0, 0, []byte{0x00})

	assert.Empty(t, fe.entries)
}

func TestHook_StepSkipsWhenNoClients(t *testing.T) {
	fe := &fakeEnqueuer{active: false}
	h := NewHook(fe, func() bool { return true })

	h.Step(0x100, 0, 0, 0, 0, 0, 0, 0, []byte{0x00})

	assert.Empty(t, fe.entries)
}

func TestHook_StepEnqueuesValidEntry(t *testing.T) {
	fe := &fakeEnqueuer{active: true}
	h := NewHook(fe, func() bool { return true })

	h.Step(0x1234, 0xAAFF, 0xBBCC, 0xDDEE, 0x1122, 0x3344, 0x5566, 0x7788, []byte{0xCB, 0x47})

	assert.Len(t, fe.entries, 1)
	e := fe.entries[0]
	assert.True(t, e.Valid)
	assert.Equal(t, uint16(0x1234), e.PC)
	assert.Equal(t, uint16(0xAAFF), e.AF)
	assert.Equal(t, uint8(2), e.OpcodeLen)
	assert.Equal(t, [4]byte{0xCB, 0x47, 0, 0}, e.OpcodeBytes)
}

func TestHook_NilEnabledFuncTreatedAsDisabled(t *testing.T) {
	fe := &fakeEnqueuer{active: true}
	h := &Hook{worker: fe}

	h.Step(1, 0, 0, 0, 0, 0, 0, 0, nil)

	assert.Empty(t, fe.entries)
}
