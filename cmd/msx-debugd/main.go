// Command msx-debugd hosts the live-debug streaming and introspection
// subsystem against a deterministic fake MSX machine, standing in for the
// real emulator the way Reactor/MSXMotherBoard would in the original.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/galpt/msx-debugd/pkg/config"
	"github.com/galpt/msx-debugd/pkg/debugserver"
	"github.com/galpt/msx-debugd/pkg/emu"
)

// Version is overridden at build time via -ldflags "-X main.Version=vX.Y.Z"
var Version = "dev"

func main() {
	var (
		machinePort = flag.Int("machine-port", int(config.Default().MachinePort), "HTTP port serving machine info")
		ioPort      = flag.Int("io-port", int(config.Default().IOPort), "HTTP port serving I/O info")
		cpuPort     = flag.Int("cpu-port", int(config.Default().CPUPort), "HTTP port serving CPU info")
		memoryPort  = flag.Int("memory-port", int(config.Default().MemoryPort), "HTTP port serving memory info")
		pushPort    = flag.Int("push-port", int(config.Default().PushPort), "Telnet port streaming push events")
		noHTTP      = flag.Bool("no-http", false, "Disable the four HTTP introspection listeners")
		noPush      = flag.Bool("no-push", false, "Disable the Telnet push listener")
		simRate     = flag.Duration("sim-rate", 2*time.Millisecond, "How often the simulated CPU loop steps an instruction")
		showVer     = flag.Bool("version", false, "Print version and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "msx-debugd %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVer {
		fmt.Printf("msx-debugd %s\n", Version)
		os.Exit(0)
	}

	cfg := config.Default()
	cfg.HTTPEnable = !*noHTTP
	cfg.PushEnable = !*noPush
	cfg.MachinePort = uint16(*machinePort)
	cfg.IOPort = uint16(*ioPort)
	cfg.CPUPort = uint16(*cpuPort)
	cfg.MemoryPort = uint16(*memoryPort)
	cfg.PushPort = uint16(*pushPort)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "msx-debugd: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	machine := emu.NewFakeMachine("msx1", "Generic MSX1")
	machine.SetVideo("TEXT40", true, true, 40)
	machine.SetTextRows([]string{"msx-debugd live demo", "press ctrl+c to stop"})

	ctl := config.NewController(cfg)
	srv := debugserver.New(ctl, machine)

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "msx-debugd: fatal: %v\n", err)
		os.Exit(1)
	}

	go runSimulatedCPU(ctx, machine, srv.Hook(), *simRate)

	fmt.Printf("msx-debugd %s listening: machine=%d io=%d cpu=%d memory=%d push=%d\n",
		Version, cfg.MachinePort, cfg.IOPort, cfg.CPUPort, cfg.MemoryPort, cfg.PushPort)

	<-ctx.Done()
	fmt.Println("shutting down...")
	srv.Stop()
	fmt.Println("shutdown complete.")
}

// runSimulatedCPU stands in for the real emulator's instruction-step loop:
// it advances the fake machine's PC and calls the trace hook at a fixed
// rate, just fast enough to demonstrate the streaming path without
// pretending to be an accurate Z80 core.
func runSimulatedCPU(ctx context.Context, m *emu.FakeMachine, hook *emu.Hook, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(1))
	pc := uint16(0x4000)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opcode := byte(rng.Intn(256))
			regs := m.Registers()
			regs.PC = pc
			m.SetRegisters(regs)

			hook.Step(pc, regs.AF, regs.BC, regs.DE, regs.HL, regs.IX, regs.IY, regs.SP, []byte{opcode})

			pc += uint16(1 + rng.Intn(3))
		}
	}
}
