package emu

import "github.com/galpt/msx-debugd/pkg/trace"

// Enqueuer is the narrow trace.Worker surface Hook needs: a non-blocking
// offer into the ring buffer and a cheap, periodically-refreshed check for
// whether any push client is currently listening.
type Enqueuer interface {
	Enqueue(e trace.Entry) bool
	HasActiveClients() bool
}

// Hook is the thin call site the emulator's instruction-step loop invokes.
// It is owned and called by the emulator, on the emulation thread, so
// every field it reads here is read without locking.
type Hook struct {
	worker Enqueuer

	// Enabled reports whether CPU-trace streaming is currently turned on
	// (the per-topic toggle from config.ServerConfig); read fresh on every
	// Step call so a config change takes effect on the next instruction.
	Enabled func() bool
}

// NewHook builds a Hook that offers entries to worker, gated by enabled.
func NewHook(worker Enqueuer, enabled func() bool) *Hook {
	return &Hook{worker: worker, Enabled: enabled}
}

// Step is called immediately after the emulator fetches an instruction's
// opcode bytes, before or during execution. It builds a trace.Entry
// directly from the already-decoded register file and opcode buffer and
// offers it to the worker; a failed offer (ring full) is silently
// dropped, never retried, matching the real-time constraint that this
// call site must never block.
func (h *Hook) Step(pc, af, bc, de, hl, ix, iy, sp uint16, opcode []byte) {
	if h.Enabled == nil || !h.Enabled() {
		return
	}
	if !h.worker.HasActiveClients() {
		return
	}

	entry := trace.Entry{
		PC: pc, AF: af, BC: bc, DE: de, HL: hl, IX: ix, IY: iy, SP: sp,
		Valid: true,
	}
	entry.OpcodeLen = uint8(copy(entry.OpcodeBytes[:], opcode))

	h.worker.Enqueue(entry)
}
