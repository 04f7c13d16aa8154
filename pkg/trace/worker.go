package trace

import (
	"sync/atomic"
	"time"

	"github.com/galpt/msx-debugd/pkg/format"
	"github.com/galpt/msx-debugd/pkg/ring"
)

// clientCheckInterval is how many empty-or-processed loop iterations pass
// between refreshes of hasActiveClients, matching the reference
// CLIENT_CHECK_INTERVAL.
const clientCheckInterval = 100

// idleSleep is how long the worker sleeps when the ring buffer is empty,
// chosen to keep latency low without busy-waiting the CPU.
const idleSleep = 100 * time.Microsecond

// broadcaster is the narrow push-listener surface the worker needs: a live
// client count and a way to fan out a formatted line. push.Listener
// satisfies this without trace importing push directly, which would
// otherwise form an import cycle (push also has no need to know about
// trace.Entry).
type broadcaster interface {
	ClientCount() int
	Broadcast(data string)
}

// Worker drains a ring.Buffer[Entry] on its own goroutine, turning each
// retired-instruction snapshot into a dbg/trace/exec line followed by a
// cpu/reg/all line, broadcast to every connected push client. It is the Go
// counterpart of DebugStreamWorker: the CPU-side producer must never
// block, so Worker only ever does non-blocking pops.
type Worker struct {
	queue     *ring.Buffer[Entry]
	formatter *format.Formatter
	push      broadcaster

	running          atomic.Bool
	hasActiveClients atomic.Bool
	stopCh           chan struct{}
	doneCh           chan struct{}
}

// NewWorker constructs a Worker over queue, formatting with formatter and
// broadcasting through push.
func NewWorker(queue *ring.Buffer[Entry], formatter *format.Formatter, push broadcaster) *Worker {
	return &Worker{queue: queue, formatter: formatter, push: push}
}

// Enqueue offers entry to the ring buffer without blocking. Returns false
// if the buffer was full and the entry was dropped — an expected,
// tolerated condition under load, never an error.
func (w *Worker) Enqueue(e Entry) bool {
	return w.queue.TryPush(e)
}

// Start begins the worker's drain loop in its own goroutine. Calling Start
// twice without an intervening Stop is a no-op.
func (w *Worker) Start() {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop()
}

// Stop signals the loop to exit, waits for it to drain any remaining
// queued entries, and returns once the goroutine has exited.
func (w *Worker) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.stopCh)
	<-w.doneCh
}

func (w *Worker) loop() {
	defer close(w.doneCh)

	checkCounter := 0
	for w.running.Load() {
		select {
		case <-w.stopCh:
			goto drain
		default:
		}

		checkCounter++
		if checkCounter >= clientCheckInterval {
			checkCounter = 0
			w.refreshClientStatus()
		}

		if e, ok := w.queue.TryPop(); ok {
			w.processEntry(e)
		} else {
			time.Sleep(idleSleep)
		}
	}

drain:
	for {
		e, ok := w.queue.TryPop()
		if !ok {
			return
		}
		w.processEntry(e)
	}
}

func (w *Worker) refreshClientStatus() {
	w.hasActiveClients.Store(w.push.ClientCount() > 0)
}

// HasActiveClients reports the last-refreshed client presence, a cheap
// check the emulation hook can use to skip building a trace Entry at all
// when nobody is listening.
func (w *Worker) HasActiveClients() bool {
	return w.hasActiveClients.Load()
}

func (w *Worker) processEntry(e Entry) {
	if !e.Valid {
		return
	}
	if w.push.ClientCount() == 0 {
		return
	}

	length, ok := OpcodeLength(e.OpcodeBytes[:e.OpcodeLen])
	if !ok || length > int(e.OpcodeLen) {
		length = 1
	}

	disasm := Disassemble(e.PC, e.OpcodeBytes[:length])

	w.push.Broadcast(w.formatter.TraceExec(e.PC, disasm))
	w.push.Broadcast(registersSnapshotLine(e))
}

// registersSnapshotLine renders the cpu/reg/all push line directly from a
// pre-captured Entry, the same "avoid touching the machine from the
// background goroutine" shortcut as the reference
// getCPURegistersSnapshot: every value needed is already in hand from the
// emulation-thread snapshot, so there is nothing left to read.
func registersSnapshotLine(e Entry) string {
	val := "AF=" + format.Hex16(e.AF) + " BC=" + format.Hex16(e.BC) +
		" DE=" + format.Hex16(e.DE) + " HL=" + format.Hex16(e.HL) +
		" IX=" + format.Hex16(e.IX) + " IY=" + format.Hex16(e.IY) +
		" SP=" + format.Hex16(e.SP) + " PC=" + format.Hex16(e.PC)
	return format.NewLine("cpu", "reg", "all", val).WithTimestamp(time.Now().UnixMilli()).Build()
}
