package supervisor_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimeobserver/ime-observer/internal/command"
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/ime/imetest"
	"github.com/kimeobserver/ime-observer/internal/supervisor"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// mockEngine is a minimal stand-in for the remapping engine's TCP server,
// used to drive the end-to-end scenarios below.
type mockEngine struct {
	ln   net.Listener
	port int
}

func newMockEngine(t *testing.T) *mockEngine {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return &mockEngine{ln: ln, port: ln.Addr().(*net.TCPAddr).Port}
}

func (m *mockEngine) close() { m.ln.Close() }

// acceptLines accepts one connection and reads newline-delimited frames
// into the returned channel until the connection closes.
func (m *mockEngine) acceptLines(t *testing.T) (<-chan string, net.Conn) {
	t.Helper()
	conn, err := m.ln.Accept()
	require.NoError(t, err)

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines, conn
}

// newFakeFactory wraps a single test-visible FakeBackend so tests can keep
// calling Push on the variable they already hold, while still modeling a
// real BackendFactory's one-fresh-backend-per-iteration contract: every
// call after the first reopens the slot the previous iteration's Shutdown
// closed.
func newFakeFactory(backend *imetest.FakeBackend) supervisor.BackendFactory {
	first := true
	return func(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error) {
		if !first {
			backend.Reopen()
		}
		first = false
		return backend, nil
	}
}

func TestConfigRoundtrip(t *testing.T) {
	engine := newMockEngine(t)
	defer engine.close()

	backend := imetest.New()
	cfg := supervisor.Config{
		Port:       engine.port,
		Binding:    command.NewConfig(map[string]uint{"mozc-jp": 0, "xkb:us::eng": 1}),
		NewBackend: newFakeFactory(backend),
	}
	sup := supervisor.New(cfg, wakeup.New())

	ctx, cancel := context.WithCancel(context.Background())
	go sup.Run(ctx)

	lines, conn := engine.acceptLines(t)
	defer conn.Close()

	backend.Push("xkb:us::eng")
	backend.Push("xkb:us::eng") // duplicate, must not re-emit
	backend.Push("mozc-jp")

	assertNextLine(t, lines, `{"ReloadNum":{"index":1}}`)
	assertNextLine(t, lines, `{"ReloadNum":{"index":0}}`)

	cancel()
}

func TestLayerUnknownKeySilent(t *testing.T) {
	engine := newMockEngine(t)
	defer engine.close()

	backend := imetest.New()
	cfg := supervisor.Config{
		Port:       engine.port,
		Binding:    command.NewLayer(map[string]string{"mozc-jp": "ja"}),
		NewBackend: newFakeFactory(backend),
	}
	sup := supervisor.New(cfg, wakeup.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	_, conn := engine.acceptLines(t)
	defer conn.Close()

	backend.Push("ibus:en")

	// No bytes should arrive; a short read deadline proves silence rather
	// than slowness.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	assert.Error(t, err, "expected a read timeout, not data, for an unbound status")
}

func TestLogModeSilent(t *testing.T) {
	engine := newMockEngine(t)
	defer engine.close()

	backend := imetest.New()
	cfg := supervisor.Config{
		Port:       engine.port,
		Binding:    command.NewLog(),
		NewBackend: newFakeFactory(backend),
	}
	sup := supervisor.New(cfg, wakeup.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	_, conn := engine.acceptLines(t)
	defer conn.Close()

	for i := 0; i < 10; i++ {
		backend.Push(string(rune('a' + i)))
	}

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	assert.Error(t, err, "log-only binding must never write to the socket")
}

func TestReconnectAfterPeerClose(t *testing.T) {
	engine := newMockEngine(t)
	defer engine.close()

	backend := imetest.New()
	cfg := supervisor.Config{
		Port:       engine.port,
		Binding:    command.NewLayer(map[string]string{"mozc-jp": "ja"}),
		NewBackend: newFakeFactory(backend),
	}
	sup := supervisor.New(cfg, wakeup.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	first, err := engine.ln.Accept()
	require.NoError(t, err)
	first.Close() // peer hangs up; supervisor must detect EOF and reconnect

	second, err := engine.ln.Accept()
	require.NoError(t, err)
	defer second.Close()

	lines := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(second)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	backend.Push("mozc-jp")
	assertNextLine(t, lines, `{"ChangeLayer":{"new":"ja"}}`)
}

func TestEdgeAfterFlapNeverEmitsConsecutiveDuplicates(t *testing.T) {
	engine := newMockEngine(t)
	defer engine.close()

	backend := imetest.New()
	cfg := supervisor.Config{
		Port:       engine.port,
		Binding:    command.NewLayer(map[string]string{"A": "layer-a", "B": "layer-b"}),
		NewBackend: newFakeFactory(backend),
	}
	sup := supervisor.New(cfg, wakeup.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	lines, conn := engine.acceptLines(t)
	defer conn.Close()

	// A, B, A in quick succession; the single-slot discipline may collapse
	// the middle B. Either one message (the final A, emitted because nothing
	// was reported before it) or two (B then A) is acceptable -- never a
	// literal repeat of the same status back to back.
	backend.Push("A")
	backend.Push("B")
	backend.Push("A")

	var got []string
	deadline := time.After(500 * time.Millisecond)
collect:
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				break collect
			}
			got = append(got, l)
		case <-deadline:
			break collect
		}
	}

	for i := 1; i < len(got); i++ {
		assert.NotEqual(t, got[i-1], got[i], "no two consecutive emitted messages may be identical")
	}
}

func assertNextLine(t *testing.T, lines <-chan string, want string) {
	t.Helper()
	select {
	case got := <-lines:
		assert.JSONEq(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for line %q", want)
	}
}
