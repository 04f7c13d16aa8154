package httptopic

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/galpt/msx-debugd/pkg/htmlview"
	"github.com/galpt/msx-debugd/pkg/introspect"
)

// Topic selects which debug document a Connection/Listener serves.
type Topic int

const (
	TopicMachine Topic = iota
	TopicIO
	TopicCPU
	TopicMemory
)

func (t Topic) htmlTopic() htmlview.Topic {
	switch t {
	case TopicIO:
		return htmlview.TopicIO
	case TopicCPU:
		return htmlview.TopicCPU
	case TopicMemory:
		return htmlview.TopicMemory
	default:
		return htmlview.TopicMachine
	}
}

// Ports carries every topic listener's port, so the HTML view rendered by
// one listener can link its nav bar to the other three by absolute URL —
// each topic is served by its own listener on its own loopback port, with
// no shared router a relative href could resolve against.
type Ports struct {
	Machine, IO, CPU, Memory int
}

func (p Ports) htmlPorts() htmlview.Ports {
	return htmlview.Ports{Machine: p.Machine, IO: p.IO, CPU: p.CPU, Memory: p.Memory}
}

const (
	defaultMemorySize  = 256
	maxMemorySize      = 65536
	defaultRefreshMS   = 100
	minRefreshMS       = 10
	maxRefreshMS       = 10000
	receiveTimeout     = 5 * time.Second
)

// Connection serves exactly one accepted client socket and then closes.
// It mirrors DebugHttpConnection's per-request lifecycle: read until the
// header terminator or the size cap, parse, route, respond (or stream),
// always ending with the socket closed.
type Connection struct {
	conn     net.Conn
	topic    Topic
	provider *introspect.Provider
	renderer *htmlview.Renderer

	closed atomic.Bool

	memoryStart     uint32
	memorySize      uint32
	refreshInterval time.Duration
}

func newConnection(conn net.Conn, topic Topic, provider *introspect.Provider, ports Ports) *Connection {
	return &Connection{
		conn:            conn,
		topic:           topic,
		provider:        provider,
		renderer:        htmlview.NewRenderer(provider, ports.htmlPorts()),
		memorySize:      defaultMemorySize,
		refreshInterval: defaultRefreshMS * time.Millisecond,
	}
}

// IsClosed reports whether this connection has finished serving its single
// request (or failed to parse one), so the owning Listener can reap it.
func (c *Connection) IsClosed() bool { return c.closed.Load() }

// Close forcibly tears down the socket; safe to call more than once.
func (c *Connection) Close() {
	c.closed.Store(true)
	_ = c.conn.Close()
}

// Serve runs the connection's entire request lifecycle to completion. It
// never panics out to the caller: any parse/handle failure ends in an
// error response or a silent close, matching the reference
// implementation's catch-all around run().
func (c *Connection) Serve() {
	defer func() { _ = recover() }()
	defer c.closed.Store(true)
	defer c.conn.Close()

	raw, err := c.readRequest()
	if err != nil || raw == "" {
		return
	}

	req := parseRequest(raw)
	if !req.Valid {
		c.sendErrorResponse(400, "Bad Request")
		return
	}

	c.handleRequest(req)
}

func (c *Connection) readRequest() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(receiveTimeout))

	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if bytes.Contains(buf, []byte("\r\n\r\n")) {
				break
			}
			if len(buf) > maxRequestBytes {
				return "", fmt.Errorf("httptopic: request exceeds %d bytes", maxRequestBytes)
			}
		}
		if err != nil {
			break
		}
	}
	return string(buf), nil
}

func (c *Connection) handleRequest(req Request) {
	if c.topic == TopicMemory {
		c.memoryStart = uint32(queryUint(req.QueryParams, "start", 0))
		size := queryUint(req.QueryParams, "size", defaultMemorySize)
		if size > maxMemorySize {
			size = maxMemorySize
		}
		c.memorySize = uint32(size)
	}

	ms := queryInt(req.QueryParams, "interval", defaultRefreshMS)
	if ms < minRefreshMS {
		ms = minRefreshMS
	}
	if ms > maxRefreshMS {
		ms = maxRefreshMS
	}
	c.refreshInterval = time.Duration(ms) * time.Millisecond

	switch req.Path {
	case "/":
		c.handleHTMLRequest()
	case "/info":
		c.handleInfoRequest(req)
	case "/api", "/api/info":
		c.handleAPIRequest()
	case "/stream":
		c.handleStreamRequest()
	default:
		c.sendErrorResponse(404, "Not Found")
	}
}

func (c *Connection) handleHTMLRequest() {
	html, err := c.renderer.Render(c.topic.htmlTopic(), c.memoryStart, c.memorySize)
	if err != nil {
		c.sendErrorResponse(500, "Internal Server Error")
		return
	}
	c.sendHTTPResponse(200, "text/html; charset=utf-8", html)
}

func (c *Connection) handleAPIRequest() {
	c.sendHTTPResponse(200, "application/json", c.generateInfo())
}

func (c *Connection) handleInfoRequest(req Request) {
	if strings.Contains(req.Headers["accept"], "text/html") {
		c.handleHTMLRequest()
		return
	}
	c.handleAPIRequest()
}

func (c *Connection) handleStreamRequest() {
	c.sendSSEHeader()

	for !c.closed.Load() {
		c.sendSSEEvent(c.generateInfo())
		time.Sleep(c.refreshInterval)

		if c.peerClosed() {
			return
		}
	}
}

// peerClosed does a one-byte read with a 1ms deadline to detect whether
// the client has hung up, standing in for the reference implementation's
// MSG_PEEK | MSG_DONTWAIT peek so the streaming loop never blocks on a dead
// connection. Unlike a true peek, a byte the client did send is consumed
// and discarded.
func (c *Connection) peerClosed() bool {
	conn, ok := c.conn.(interface {
		SetReadDeadline(time.Time) error
	})
	if !ok {
		return false
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	one := make([]byte, 1)
	n, err := c.conn.Read(one)
	_ = conn.SetReadDeadline(time.Time{})
	if n == 0 && err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return false // no data available, connection still alive
		}
		return true // EOF or hard error: client disconnected
	}
	return false
}

func (c *Connection) generateInfo() string {
	var (
		doc any
		err error
	)
	switch c.topic {
	case TopicMachine:
		doc = c.provider.MachineInfo()
	case TopicIO:
		doc = c.provider.IOInfo()
	case TopicCPU:
		doc = c.provider.CPUInfo()
	case TopicMemory:
		doc = c.provider.MemoryInfo(c.memoryStart, c.memorySize)
	}
	body, err := introspect.MarshalIndent(doc)
	if err != nil {
		return `{"error":"Unknown info type"}`
	}
	return string(body)
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

func (c *Connection) sendHTTPResponse(statusCode int, contentType, body string) {
	resp := "HTTP/1.1 " + strconv.Itoa(statusCode) + " " + statusText(statusCode) + "\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Access-Control-Allow-Origin: *\r\n" +
		"Cache-Control: no-cache\r\n" +
		"Connection: close\r\n" +
		"\r\n" + body
	_, _ = c.conn.Write([]byte(resp))
}

func (c *Connection) sendErrorResponse(statusCode int, message string) {
	c.sendHTTPResponse(statusCode, "application/json", `{"error":"`+message+`"}`)
}

func (c *Connection) sendSSEHeader() {
	resp := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/event-stream\r\n" +
		"Access-Control-Allow-Origin: *\r\n" +
		"Cache-Control: no-cache\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\n"
	_, _ = c.conn.Write([]byte(resp))
}

func (c *Connection) sendSSEEvent(data string) {
	_, _ = c.conn.Write([]byte("data: " + data + "\n\n"))
}
