// Package htmlview renders the browser-facing debug dashboards, one per
// topic (machine, io, cpu, memory), each served at GET / (and GET /info
// for HTML clients) of that topic's own listener. It uses html/template for
// automatic contextual escaping rather than a hand-rolled escapeHtml, the
// one place this subsystem prefers the standard library outright: no
// third-party templating engine in the example pack does anything
// html/template doesn't already do correctly and safely.
package htmlview

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/galpt/msx-debugd/pkg/introspect"
)

// Topic names the four dashboard pages.
type Topic string

const (
	TopicMachine Topic = "machine"
	TopicIO      Topic = "io"
	TopicCPU     Topic = "cpu"
	TopicMemory  Topic = "memory"
)

// MaxMemoryDump caps how many bytes the memory page will render as a hex
// dump; a larger requested size is cut to this many bytes before the range
// is fetched from introspect.Provider, and the page marks it as truncated,
// to keep the page tractable in a browser.
const MaxMemoryDump = 4096

// RefreshSeconds is the dashboard's <meta http-equiv="refresh"> interval.
const RefreshSeconds = 1

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

type navItem struct {
	Label  string
	Href   string
	Active bool
}

type pageData struct {
	Title   string
	Nav     []navItem
	Body    template.HTML
	Refresh int
}

// Ports carries the loopback port each of the four topic listeners is
// bound to, so one listener's nav bar can link to its siblings: each topic
// is served by its own listener on its own port, there is no shared router
// that a relative href like "/io" could resolve against.
type Ports struct {
	Machine, IO, CPU, Memory int
}

func navHref(port int) string {
	return "http://127.0.0.1:" + strconv.Itoa(port) + "/"
}

func nav(active Topic, ports Ports) []navItem {
	items := []navItem{
		{"Machine", navHref(ports.Machine), active == TopicMachine},
		{"I/O", navHref(ports.IO), active == TopicIO},
		{"CPU", navHref(ports.CPU), active == TopicCPU},
		{"Memory", navHref(ports.Memory), active == TopicMemory},
	}
	return items
}

// Renderer builds dashboard pages from introspect documents.
type Renderer struct {
	provider *introspect.Provider
	ports    Ports
}

// NewRenderer wraps provider; it is read on every render call so each page
// reflects the live machine. ports is used to build the nav bar's absolute
// links to the sibling listeners.
func NewRenderer(provider *introspect.Provider, ports Ports) *Renderer {
	return &Renderer{provider: provider, ports: ports}
}

// Render dispatches to the page for topic. memStart/memSize are only
// consulted when topic is TopicMemory.
func (r *Renderer) Render(topic Topic, memStart, memSize uint32) (string, error) {
	var (
		title string
		body  string
	)
	switch topic {
	case TopicIO:
		title, body = "I/O State", r.ioBody()
	case TopicCPU:
		title, body = "CPU State", r.cpuBody()
	case TopicMemory:
		title, body = "Memory Dump", r.memoryBody(memStart, memSize)
	default:
		topic, title, body = TopicMachine, "Machine Info", r.machineBody()
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:   title,
		Nav:     nav(topic, r.ports),
		Body:    template.HTML(body), // body comes from our own templates below, not request input
		Refresh: RefreshSeconds,
	})
	return buf.String(), err
}

func (r *Renderer) machineBody() string {
	var buf bytes.Buffer
	_ = machineTemplate.Execute(&buf, r.provider.MachineInfo())
	return buf.String()
}

func (r *Renderer) ioBody() string {
	var buf bytes.Buffer
	_ = ioTemplate.Execute(&buf, r.provider.IOInfo())
	return buf.String()
}

func (r *Renderer) cpuBody() string {
	var buf bytes.Buffer
	_ = cpuTemplate.Execute(&buf, r.provider.CPUInfo())
	return buf.String()
}

type memoryView struct {
	introspect.MemoryInfo
	Truncated bool
}

func (r *Renderer) memoryBody(start, size uint32) string {
	truncated := size > MaxMemoryDump
	if truncated {
		size = MaxMemoryDump
	}
	info := r.provider.MemoryInfo(start, size)

	var buf bytes.Buffer
	_ = memoryTemplate.Execute(&buf, memoryView{info, truncated})
	return buf.String()
}
