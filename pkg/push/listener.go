package push

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/galpt/msx-debugd/pkg/emu"
	"github.com/galpt/msx-debugd/pkg/format"
	"github.com/galpt/msx-debugd/pkg/logging"
)

// Listener accepts Telnet clients and broadcasts every pushed debug event
// to all of them. It is the Go counterpart of DebugTelnetServer.
type Listener struct {
	addr      string
	formatter *format.Formatter
	machine   emu.Machine

	// OnClientConnect, if set, is invoked once per accepted client, right
	// after its greeting goroutine is started (it does not wait for the
	// greeting to finish) — the reference implementation uses this to interrupt the
	// CPU's blocking run loop so trace streaming starts immediately rather
	// than waiting for the next natural yield point.
	OnClientConnect func()

	mu        sync.Mutex
	ln        net.Listener
	conns     []*Connection
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewListener constructs a Listener bound to 127.0.0.1:port once Start is
// called. machine may be nil (no machine loaded yet); it is read fresh on
// every new connection's greeting via Attach.
func NewListener(port int, formatter *format.Formatter, machine emu.Machine) *Listener {
	return &Listener{
		addr:      net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		formatter: formatter,
		machine:   machine,
	}
}

// Attach swaps in a new machine reference for subsequent greetings.
func (l *Listener) Attach(m emu.Machine) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.machine = m
}

// Start binds the loopback listen socket with SO_REUSEADDR and begins
// accepting connections in a background goroutine.
func (l *Listener) Start() error {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp", l.addr)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop()
	}()
	return nil
}

// Stop closes the listen socket and every live connection, then blocks
// until the accept loop and every connection's greet/idle goroutine have
// actually exited, so no resource outlives Stop's return.
func (l *Listener) Stop() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		ln := l.ln
		conns := l.conns
		l.ln = nil
		l.conns = nil
		l.mu.Unlock()

		if ln != nil {
			_ = ln.Close()
		}
		for _, c := range conns {
			c.Close()
		}
		l.wg.Wait()
	})
}

// Addr returns the bound address once Start has succeeded.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// ClientCount returns the number of connections not yet observed closed.
// The trace worker polls this to decide whether producing trace output is
// worth the cost at all.
func (l *Listener) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.conns {
		if !c.IsClosed() {
			n++
		}
	}
	return n
}

// Broadcast sends data to every live connection. A connection whose write
// fails is marked closed by Send, no longer counts in ClientCount, and is
// removed from the list at the next cleanup pass after an accept. Safe to
// call from any goroutine, including concurrently with new accepts.
func (l *Listener) Broadcast(data string) {
	l.mu.Lock()
	conns := append([]*Connection(nil), l.conns...)
	l.mu.Unlock()

	for _, c := range conns {
		if !c.IsClosed() {
			c.Send(data)
		}
	}
}

func (l *Listener) acceptLoop() {
	log := logging.Component("push")
	for {
		l.mu.Lock()
		ln := l.ln
		l.mu.Unlock()
		if ln == nil {
			return
		}

		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("accept failed")
			continue
		}

		l.acceptConnection(conn)
		l.cleanupConnections()
	}
}

func (l *Listener) acceptConnection(conn net.Conn) {
	c := newConnection(conn, l.formatter)
	logging.Component("push").Debug().Str("conn_id", c.ID).
		Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	l.mu.Lock()
	l.conns = append(l.conns, c)
	machine := l.machine
	onConnect := l.OnClientConnect
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		c.Greet(machine)
		c.Idle()
	}()

	if onConnect != nil {
		onConnect()
	}
}

func (l *Listener) cleanupConnections() {
	l.mu.Lock()
	defer l.mu.Unlock()
	live := l.conns[:0]
	for _, c := range l.conns {
		if !c.IsClosed() {
			live = append(live, c)
		}
	}
	l.conns = live
}
