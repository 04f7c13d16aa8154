package httptopic

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/galpt/msx-debugd/pkg/introspect"
	"github.com/galpt/msx-debugd/pkg/logging"
)

// Listener accepts client sockets for one debug Topic and spawns a
// short-lived Connection per request. It binds loopback-only, matching the
// reference implementation's security posture of never exposing the debug
// port beyond 127.0.0.1.
type Listener struct {
	topic    Topic
	addr     string
	provider *introspect.Provider
	ports    Ports

	mu        sync.Mutex
	ln        net.Listener
	conns     []*Connection
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewListener constructs a Listener for topic, bound to 127.0.0.1:port once
// Start is called. ports is forwarded to every accepted Connection's HTML
// renderer so its nav bar can link to the other three topic listeners.
func NewListener(topic Topic, port int, provider *introspect.Provider, ports Ports) *Listener {
	return &Listener{
		topic:    topic,
		addr:     net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		provider: provider,
		ports:    ports,
	}
}

// Start binds the loopback listen socket with SO_REUSEADDR and begins
// accepting connections in a background goroutine. It returns once the
// socket is bound so callers know immediately whether the port was
// available.
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

// Stop closes the listen socket (causing acceptLoop's Accept to return
// net.ErrClosed, the Go-native replacement for the reference
// implementation's Poller.abort()) and every connection currently being
// served, then blocks until the accept loop and every connection goroutine
// it spawned have actually exited, so no resource outlives Stop's return.
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

func (l *Listener) acceptLoop() {
	log := logging.Component("httptopic")
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

		c := newConnection(conn, l.topic, l.provider, l.ports)
		l.registerConnection(c)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			c.Serve()
			l.cleanupConnections()
		}()
	}
}

func (l *Listener) registerConnection(c *Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conns = append(l.conns, c)
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

