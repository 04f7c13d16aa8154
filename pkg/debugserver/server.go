// Package debugserver is the top-level lifecycle controller: it owns the
// four per-topic HTTP listeners, the push (Telnet) listener, the trace
// worker, the introspection provider, and the formatter, starting and
// tearing them down in the order their dependencies require, and reacting
// to config.Controller changes by restarting only what a change affects.
package debugserver

import (
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/galpt/msx-debugd/pkg/config"
	"github.com/galpt/msx-debugd/pkg/dbgerr"
	"github.com/galpt/msx-debugd/pkg/emu"
	"github.com/galpt/msx-debugd/pkg/format"
	"github.com/galpt/msx-debugd/pkg/httptopic"
	"github.com/galpt/msx-debugd/pkg/introspect"
	"github.com/galpt/msx-debugd/pkg/logging"
	"github.com/galpt/msx-debugd/pkg/push"
	"github.com/galpt/msx-debugd/pkg/ring"
	"github.com/galpt/msx-debugd/pkg/trace"
)

// traceQueueCapacity is the usable size of the SPSC ring between the
// emulation thread and the trace worker.
const traceQueueCapacity = 4096

// httpPorts extracts the four topic ports from cfg in the shape
// httptopic.Listener forwards to its Connections' HTML nav bars.
func httpPorts(cfg config.ServerConfig) httptopic.Ports {
	return httptopic.Ports{
		Machine: int(cfg.MachinePort),
		IO:      int(cfg.IOPort),
		CPU:     int(cfg.CPUPort),
		Memory:  int(cfg.MemoryPort),
	}
}

// Server wires every piece of the subsystem together. Its zero value is
// not usable; construct with New.
type Server struct {
	cfg       *config.Controller
	provider  *introspect.Provider
	formatter *format.Formatter
	queue     *ring.Buffer[trace.Entry]

	mu            sync.Mutex
	running       bool
	machine       emu.Machine
	httpListeners map[httptopic.Topic]*httptopic.Listener
	pushListener  *push.Listener
	worker        *trace.Worker

	cfgSub    <-chan config.Change
	stopWatch chan struct{}
}

// New builds a Server against the given config.Controller and an initial
// (possibly nil) emu.Machine. Nothing is started until Start is called.
func New(cfg *config.Controller, machine emu.Machine) *Server {
	provider := introspect.NewProvider(machine)
	formatter := format.New()
	queue := ring.New[trace.Entry](traceQueueCapacity)

	current := cfg.Current()
	pushListener := push.NewListener(int(current.PushPort), formatter, machine)
	worker := trace.NewWorker(queue, formatter, pushListener)

	return &Server{
		cfg:           cfg,
		provider:      provider,
		formatter:     formatter,
		queue:         queue,
		machine:       machine,
		pushListener:  pushListener,
		worker:        worker,
		httpListeners: make(map[httptopic.Topic]*httptopic.Listener),
	}
}

// Attach swaps in a newly loaded machine, propagating it to the
// introspection provider and the push listener's next greeting.
func (s *Server) Attach(m emu.Machine) {
	s.mu.Lock()
	s.machine = m
	s.mu.Unlock()

	s.provider.Attach(m)
	s.pushListener.Attach(m)
}

// Hook returns an emu.Hook wired to this server's trace worker, gated on
// the live config's StreamCPU toggle. Server itself satisfies
// emu.Enqueuer so the returned Hook keeps working across a push-listener
// restart (the indirection through Server resolves the current worker on
// every call rather than capturing one at construction time).
func (s *Server) Hook() *emu.Hook {
	return emu.NewHook(s, func() bool { return s.cfg.Current().StreamCPU })
}

// Enqueue implements emu.Enqueuer by forwarding to the current worker.
func (s *Server) Enqueue(e trace.Entry) bool {
	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()
	return w.Enqueue(e)
}

// HasActiveClients implements emu.Enqueuer by forwarding to the current worker.
func (s *Server) HasActiveClients() bool {
	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()
	return w.HasActiveClients()
}

// Start brings up every enabled listener and the trace worker, and begins
// watching the config.Controller for subsequent changes. Calling Start
// twice without an intervening Stop is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	cfg := s.cfg.Current()

	if cfg.HTTPEnable {
		if err := s.startHTTPListenersLocked(cfg); err != nil {
			return err
		}
	}

	if cfg.PushEnable {
		if err := s.pushListener.Start(); err != nil {
			return dbgerr.Wrap("debugserver.Start", dbgerr.StartupFailure, err)
		}
	}

	s.worker.Start()

	s.cfgSub = s.cfg.Subscribe()
	s.stopWatch = make(chan struct{})
	go s.watchConfig()

	s.running = true
	return nil
}

// startHTTPListenersLocked starts the four per-topic HTTP listeners
// concurrently with a plain errgroup.Group: there is no shared context to
// cancel, so one listener's bind failure does not stop its siblings from
// attempting to bind, matching the requirement that other listeners stay
// unaffected by a single port being unavailable.
func (s *Server) startHTTPListenersLocked(cfg config.ServerConfig) error {
	navPorts := httpPorts(cfg)
	ports := map[httptopic.Topic]int{
		httptopic.TopicMachine: int(cfg.MachinePort),
		httptopic.TopicIO:      int(cfg.IOPort),
		httptopic.TopicCPU:     int(cfg.CPUPort),
		httptopic.TopicMemory:  int(cfg.MemoryPort),
	}

	var g errgroup.Group
	var mu sync.Mutex
	for topic, port := range ports {
		topic, port := topic, port
		g.Go(func() error {
			l := httptopic.NewListener(topic, port, s.provider, navPorts)
			if err := l.Start(); err != nil {
				return dbgerr.Wrap("debugserver.startHTTPListeners", dbgerr.StartupFailure, err)
			}
			mu.Lock()
			s.httpListeners[topic] = l
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Stop tears everything down in dependency order: the trace worker first
// (so nothing keeps pulling off the ring once the push listener it
// broadcasts through is gone), then the push listener, then the HTTP
// listeners, then the config watcher.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.worker.Stop()
	s.pushListener.Stop()
	for topic, l := range s.httpListeners {
		l.Stop()
		delete(s.httpListeners, topic)
	}

	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}

	s.running = false
}

// HTTPAddr returns the bound address of the listener for topic, or nil if
// that listener is not running.
func (s *Server) HTTPAddr(topic httptopic.Topic) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.httpListeners[topic]
	if !ok {
		return nil
	}
	return l.Addr()
}

// PushAddr returns the bound address of the push listener, or nil if it
// is not running.
func (s *Server) PushAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushListener.Addr()
}

func (s *Server) watchConfig() {
	for {
		select {
		case change, ok := <-s.cfgSub:
			if !ok {
				return
			}
			s.applyChange(change)
		case <-s.stopWatch:
			return
		}
	}
}

func (s *Server) applyChange(change config.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	prev, next := change.Prev, change.Next

	switch {
	case prev.HTTPEnable != next.HTTPEnable:
		s.restartAllHTTPListenersLocked(next)
	case next.HTTPEnable:
		if prev.MachinePort != next.MachinePort {
			s.restartHTTPListenerLocked(httptopic.TopicMachine, int(next.MachinePort))
		}
		if prev.IOPort != next.IOPort {
			s.restartHTTPListenerLocked(httptopic.TopicIO, int(next.IOPort))
		}
		if prev.CPUPort != next.CPUPort {
			s.restartHTTPListenerLocked(httptopic.TopicCPU, int(next.CPUPort))
		}
		if prev.MemoryPort != next.MemoryPort {
			s.restartHTTPListenerLocked(httptopic.TopicMemory, int(next.MemoryPort))
		}
	}

	if prev.PushEnable != next.PushEnable || prev.PushPort != next.PushPort {
		s.restartPushLocked(next)
	}
}

func (s *Server) restartAllHTTPListenersLocked(cfg config.ServerConfig) {
	log := logging.Component("debugserver")
	for topic, l := range s.httpListeners {
		l.Stop()
		delete(s.httpListeners, topic)
	}
	if !cfg.HTTPEnable {
		return
	}
	if err := s.startHTTPListenersLocked(cfg); err != nil {
		log.Error().Err(err).Msg("failed to restart HTTP listeners after config change")
	}
}

func (s *Server) restartHTTPListenerLocked(topic httptopic.Topic, port int) {
	log := logging.Component("debugserver")
	if l, ok := s.httpListeners[topic]; ok {
		l.Stop()
		delete(s.httpListeners, topic)
	}
	nl := httptopic.NewListener(topic, port, s.provider, httpPorts(s.cfg.Current()))
	if err := nl.Start(); err != nil {
		log.Error().Err(err).Msg("failed to restart HTTP listener after config change")
		return
	}
	s.httpListeners[topic] = nl
}

// restartPushLocked rebuilds both the push listener and the trace worker
// around it: the worker holds a fixed broadcaster reference captured at
// construction, so a push-port change requires a fresh worker too, not
// just a fresh listener.
func (s *Server) restartPushLocked(cfg config.ServerConfig) {
	s.worker.Stop()
	s.pushListener.Stop()

	newPush := push.NewListener(int(cfg.PushPort), s.formatter, s.machine)
	s.pushListener = newPush
	s.worker = trace.NewWorker(s.queue, s.formatter, newPush)

	if !cfg.PushEnable {
		return
	}

	if err := newPush.Start(); err != nil {
		logging.Component("debugserver").Error().Err(err).Msg("failed to restart push listener after config change")
		return
	}
	s.worker.Start()
}
