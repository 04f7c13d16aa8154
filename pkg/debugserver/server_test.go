package debugserver

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galpt/msx-debugd/pkg/config"
	"github.com/galpt/msx-debugd/pkg/emu"
	"github.com/galpt/msx-debugd/pkg/httptopic"
)

// testConfig returns a valid ServerConfig on a block of high ports
// dedicated to this test file, so ctl.Apply (which validates) succeeds
// for every test, including ones that only change a single field.
func testConfig() config.ServerConfig {
	return config.ServerConfig{
		HTTPEnable:  true,
		MachinePort: 58101,
		IOPort:      58102,
		CPUPort:     58103,
		MemoryPort:  58104,
		PushEnable:  true,
		PushPort:    58105,
		StreamCPU:   true,
		StreamMem:   true,
		StreamIO:    true,
		StreamSlot:  true,
	}
}

func TestServer_StartBindsAllListenersAndStopTearsDownCleanly(t *testing.T) {
	ctl := config.NewController(testConfig())
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	s := New(ctl, m)

	require.NoError(t, s.Start())

	for _, topic := range []httptopic.Topic{httptopic.TopicMachine, httptopic.TopicIO, httptopic.TopicCPU, httptopic.TopicMemory} {
		assert.NotNil(t, s.HTTPAddr(topic))
	}
	assert.NotNil(t, s.PushAddr())

	s.Stop()

	assert.Nil(t, s.HTTPAddr(httptopic.TopicMachine))
}

func TestServer_StartTwiceIsNoOp(t *testing.T) {
	ctl := config.NewController(testConfig())
	s := New(ctl, emu.NewFakeMachine("msx1", "Generic MSX1"))

	require.NoError(t, s.Start())
	addr := s.PushAddr()
	require.NoError(t, s.Start())

	assert.Equal(t, addr, s.PushAddr())
	s.Stop()
}

func TestServer_StopBeforeStartIsNoOp(t *testing.T) {
	ctl := config.NewController(testConfig())
	s := New(ctl, emu.NewFakeMachine("msx1", "Generic MSX1"))
	assert.NotPanics(t, s.Stop)
}

func TestServer_HTTPEnableFalseStartsNoHTTPListeners(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPEnable = false
	ctl := config.NewController(cfg)
	s := New(ctl, emu.NewFakeMachine("msx1", "Generic MSX1"))

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Nil(t, s.HTTPAddr(httptopic.TopicMachine))
	assert.NotNil(t, s.PushAddr())
}

func TestServer_HookEnqueuesWhenPushClientConnected(t *testing.T) {
	ctl := config.NewController(testConfig())
	m := emu.NewFakeMachine("msx1", "Generic MSX1")
	s := New(ctl, m)
	require.NoError(t, s.Start())
	defer s.Stop()

	conn, err := net.DialTimeout("tcp", s.PushAddr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, s.HasActiveClients, time.Second, 5*time.Millisecond)

	hook := s.Hook()
	hook.Step(0x100, 0, 0, 0, 0, 0, 0, 0, []byte{0x00})

	var received string
	require.Eventually(t, func() bool {
		_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		buf := make([]byte, 4096)
		n, _ := conn.Read(buf)
		received += string(buf[:n])
		return strings.Contains(received, `"cat":"dbg"`)
	}, 2*time.Second, 50*time.Millisecond)
}

func TestServer_ApplyChangeRestartsAffectedHTTPListenerOnly(t *testing.T) {
	ctl := config.NewController(testConfig())
	s := New(ctl, emu.NewFakeMachine("msx1", "Generic MSX1"))
	require.NoError(t, s.Start())
	defer s.Stop()

	ioAddrBefore := s.HTTPAddr(httptopic.TopicIO).String()

	next := ctl.Current()
	next.MachinePort = 58111
	require.NoError(t, ctl.Apply(next))

	require.Eventually(t, func() bool {
		addr := s.HTTPAddr(httptopic.TopicMachine)
		return addr != nil && addr.String() == "127.0.0.1:58111"
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, ioAddrBefore, s.HTTPAddr(httptopic.TopicIO).String(), "unrelated listener must not restart")
}

func TestServer_ApplyChangeRestartsWorkerAndPushOnPortChange(t *testing.T) {
	ctl := config.NewController(testConfig())
	s := New(ctl, emu.NewFakeMachine("msx1", "Generic MSX1"))
	require.NoError(t, s.Start())
	defer s.Stop()

	next := ctl.Current()
	next.PushPort = 58222
	require.NoError(t, ctl.Apply(next))

	require.Eventually(t, func() bool {
		addr := s.PushAddr()
		return addr != nil && addr.String() == "127.0.0.1:58222"
	}, time.Second, 5*time.Millisecond)
}
