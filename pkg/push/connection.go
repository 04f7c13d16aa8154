// Package push implements the Telnet-framed JSON-Lines broadcast server:
// clients connect, receive a minimal Telnet negotiation and a full state
// snapshot, and are then pushed every subsequent dbg/cpu/mem/io event the
// trace worker and emulation hooks produce.
package push

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/galpt/msx-debugd/pkg/emu"
	"github.com/galpt/msx-debugd/pkg/format"
)

// telnetInit is the minimal negotiation sent to every new connection: IAC
// WILL ECHO, IAC WILL SUPPRESS-GO-AHEAD.
var telnetInit = []byte{0xFF, 0xFB, 0x01, 0xFF, 0xFB, 0x03}

// idlePollInterval is how often Connection checks for a client-side
// disconnect via a non-blocking peek while otherwise idle.
const idlePollInterval = 100 * time.Millisecond

// Connection is one pushed Telnet client. Its socket handle is held behind
// an atomic so Close (called from the owning Listener) and Send (called
// concurrently from the trace worker or emulation hooks) never race.
type Connection struct {
	ID string

	conn      atomic.Pointer[net.Conn]
	sendMu    sync.Mutex
	closed    atomic.Bool
	formatter *format.Formatter
}

// newConnection wraps an accepted client socket. It does not start
// anything; call Greet then Idle (the latter typically in its own
// goroutine).
func newConnection(conn net.Conn, formatter *format.Formatter) *Connection {
	c := &Connection{ID: uuid.NewString(), formatter: formatter}
	c.conn.Store(&conn)
	return c
}

// Greet sends the Telnet negotiation bytes, the hello line, and the full
// state snapshot, in that order — mirroring sendTelnetInit + sendWelcome.
func (c *Connection) Greet(m emu.Machine) {
	c.writeRaw(telnetInit)
	if hello := c.formatter.Hello(); hello != "" {
		c.Send(hello)
	}
	for _, line := range c.formatter.FullSnapshot(m) {
		c.Send(line)
	}
}

// Idle blocks, periodically peeking the socket for a client disconnect,
// until the connection is closed or the peer hangs up. Call this in its
// own goroutine per connection.
func (c *Connection) Idle() {
	for !c.closed.Load() {
		if c.peerClosed() {
			c.closed.Store(true)
			return
		}
		time.Sleep(idlePollInterval)
	}
}

func (c *Connection) peerClosed() bool {
	conn := c.currentConn()
	if conn == nil {
		return true
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	one := make([]byte, 1)
	n, err := conn.Read(one)
	_ = conn.SetReadDeadline(time.Time{})
	if n == 0 && err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return false
		}
		return true
	}
	return false
}

// IsClosed reports whether this connection has been torn down, either by
// Close or by detecting the peer hung up.
func (c *Connection) IsClosed() bool { return c.closed.Load() }

// Close atomically swaps out the socket handle and closes it, so a
// concurrent Send sees a nil handle rather than racing the close.
func (c *Connection) Close() {
	c.closed.Store(true)
	old := c.conn.Swap(nil)
	if old != nil {
		_ = (*old).Close()
	}
}

func (c *Connection) currentConn() net.Conn {
	p := c.conn.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Send transmits one JSON-Lines record, CRLF-terminated per Telnet
// convention, under the per-connection send mutex so concurrent pushes
// from the trace worker interleave cleanly rather than tearing lines. It
// returns false (and marks the connection closed) if the write failed.
func (c *Connection) Send(data string) bool {
	if c.closed.Load() {
		return false
	}

	line := ensureCRLF(data)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	conn := c.currentConn()
	if conn == nil {
		return false
	}
	if _, err := conn.Write([]byte(line)); err != nil {
		c.closed.Store(true)
		return false
	}
	return true
}

func (c *Connection) writeRaw(b []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	conn := c.currentConn()
	if conn == nil {
		return
	}
	_, _ = conn.Write(b)
}

// ensureCRLF terminates data with CRLF, turning a bare trailing "\n" into
// "\r\n". It is a standalone function so tests can check the line-ending
// contract in isolation from a live socket.
func ensureCRLF(data string) string {
	if data == "" || !strings.HasSuffix(data, "\n") {
		return data + "\r\n"
	}
	if len(data) >= 2 && data[len(data)-2] != '\r' {
		return data[:len(data)-1] + "\r\n"
	}
	return data
}
