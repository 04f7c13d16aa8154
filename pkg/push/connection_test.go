package push

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galpt/msx-debugd/pkg/emu"
	"github.com/galpt/msx-debugd/pkg/format"
)

func TestConnection_GreetSendsNegotiationHelloAndSnapshot(t *testing.T) {
	server, client := net.Pipe()
	c := newConnection(server, format.New())
	m := emu.NewFakeMachine("msx1", "Generic MSX1")

	go c.Greet(m)

	buf := make([]byte, 4096)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := readAtLeast(client, buf, len(telnetInit)+10)
	require.NoError(t, err)

	got := buf[:n]
	assert.Equal(t, telnetInit, got[:len(telnetInit)])
	assert.Contains(t, string(got[len(telnetInit):]), `"fld":"hello"`)

	_ = client.Close()
	_ = server.Close()
}

func readAtLeast(conn net.Conn, buf []byte, min int) (int, error) {
	total := 0
	for total < min {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestEnsureCRLF(t *testing.T) {
	assert.Equal(t, "hi\r\n", ensureCRLF("hi"))
	assert.Equal(t, "hi\r\n", ensureCRLF("hi\n"))
	assert.Equal(t, "hi\r\n", ensureCRLF("hi\r\n"))
}

func TestConnection_SendFailsAfterClose(t *testing.T) {
	server, client := net.Pipe()
	c := newConnection(server, format.New())
	c.Close()
	_ = client.Close()

	assert.False(t, c.Send("x"))
	assert.True(t, c.IsClosed())
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	server, _ := net.Pipe()
	c := newConnection(server, format.New())
	c.Close()
	assert.NotPanics(t, c.Close)
}
