// Package supervisor implements the outer reconnect loop: for every
// iteration it opens a TCP connection to the remapping engine, constructs
// the platform IME/layer backend, and spawns a writer goroutine (backend
// -> engine) and a reader goroutine (engine -> log), tearing everything
// down and restarting whenever any of them reports a fatal error.
package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kimeobserver/ime-observer/internal/backoff"
	"github.com/kimeobserver/ime-observer/internal/command"
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/logger"
	"github.com/kimeobserver/ime-observer/internal/protocol"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// Fixed timeouts and retry budget for the TCP connection to the remapping
// engine.
const (
	connectTimeout = 30 * time.Second
	writeTimeout   = 5 * time.Second

	backoffMinDelay   = 100 * time.Millisecond
	backoffMaxDelay   = 10 * time.Second
	backoffMaxRetries = 10

	iterationSettleDelay = 100 * time.Millisecond
)

// BackendFactory constructs a platform backend. cmd/ime-observer wires in
// whichever platform's constructor matches GOOS/GOARCH via build tags.
type BackendFactory func(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error)

// Config is the supervisor's immutable startup configuration, assembled by
// the CLI layer.
type Config struct {
	// Port is the remapping engine's TCP port on 127.0.0.1.
	Port int
	// Binding is the fixed command binding (config/layer/log) selected at
	// startup.
	Binding command.Binding
	// NewBackend constructs the platform backend for each iteration.
	NewBackend BackendFactory
	// BackendConfig is forwarded to NewBackend on every iteration.
	BackendConfig ime.Config
}

// Supervisor runs Config's outer loop against a single shared wakeup
// channel: one daemon process drives exactly one backend at a time.
type Supervisor struct {
	cfg    Config
	wakeup *wakeup.Channel
}

// New builds a Supervisor. The wakeup channel is process-wide; callers
// construct one with wakeup.New() at startup and reuse it across restarts.
func New(cfg Config, wc *wakeup.Channel) *Supervisor {
	return &Supervisor{cfg: cfg, wakeup: wc}
}

// Run executes the outer loop until ctx is cancelled (SIGINT/Ctrl-C) or a
// connect-retry budget is exhausted, in which case it returns a
// process-exit fatal error.
func (s *Supervisor) Run(ctx context.Context) error {
	fec := fatalerr.New()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.runOnce(ctx, fec); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(iterationSettleDelay):
		}
	}
}

// runOnce executes a single supervisor iteration. A nil error means the
// iteration tore down cleanly (fatal to the iteration, not the process)
// and the caller should restart; a non-nil error is a process-exit fatal
// (connect-retry budget exhausted).
func (s *Supervisor) runOnce(ctx context.Context, fec *fatalerr.Channel) error {
	fec.Drain()
	tw := fatalerr.NewTripwire()

	catcherDone := make(chan error, 1)
	go func() {
		catcherDone <- fatalerr.AwaitAndLatch(fec, tw)
	}()

	// Graceful shutdown (SIGINT/Ctrl-C) is cooperative via the same
	// tripwire: cancelling ctx publishes a synthetic fatal so every
	// tripwire-polling loop in this iteration unwinds the same way a real
	// fault would.
	stopCtxWatch := make(chan struct{})
	defer close(stopCtxWatch)
	go func() {
		select {
		case <-ctx.Done():
			fec.Publish(fmt.Errorf("supervisor: %w", ctx.Err()))
		case <-stopCtxWatch:
		}
	}()

	conn, err := dialWithBackoff(ctx, s.cfg.Port)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("supervisor: connect retry budget exhausted: %w", err)
	}
	defer conn.Close()
	logger.Infof("supervisor: connected to 127.0.0.1:%d", s.cfg.Port)

	backend, err := s.cfg.NewBackend(s.wakeup, tw, s.cfg.BackendConfig)
	if err != nil {
		fec.Publish(fmt.Errorf("supervisor: backend construction failed: %w", err))
	} else {
		receiver := ime.NewReceiver(backend)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			s.writerLoop(conn, receiver, fec, tw)
		}()

		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			s.readerLoop(conn, fec, tw)
		}()

		ime.RunMainLoop(backend, tw)

		<-catcherDone
		// Unblock both goroutines before waiting on them: the writer only
		// wakes on a closed Slot (receiver.Shutdown) or a new token, and the
		// reader only wakes on new data or a closed conn, so either can hang
		// forever if the fatal trip originated somewhere else (ctx-cancel,
		// a reader-independent backend failure).
		conn.Close()
		if err := receiver.Shutdown(s.wakeup); err != nil {
			logger.Errorf("supervisor: backend shutdown: %v", err)
		}
		<-writerDone
		<-readerDone
		return nil
	}

	<-catcherDone
	return nil
}

// writerLoop repeatedly calls Receive, looks up the command binding, and
// writes the resulting wire message.
func (s *Supervisor) writerLoop(conn net.Conn, receiver *ime.Receiver, fec *fatalerr.Channel, tw *fatalerr.Tripwire) {
	for !tw.Tripped() {
		status, err := receiver.Receive()
		if err != nil {
			if tw.Tripped() {
				return
			}
			fec.Publish(fmt.Errorf("supervisor: writer: %w", err))
			return
		}

		msg, ok := wireMessage(s.cfg.Binding, status)
		if !ok {
			logger.Infof("supervisor: transition -> %q (log only)", status)
			continue
		}
		logger.Infof("supervisor: transition -> %q", status)

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		line, err := json.Marshal(msg)
		if err != nil {
			fec.Publish(fmt.Errorf("supervisor: writer: marshal: %w", err))
			return
		}
		line = append(line, '\n')
		if _, err := conn.Write(line); err != nil {
			fec.Publish(fmt.Errorf("supervisor: writer: write: %w", err))
			return
		}
	}
}

// readerLoop processes line-buffered responses from the engine, logged at
// debug, with unrecognized status or EOF escalated to fatal.
func (s *Supervisor) readerLoop(conn net.Conn, fec *fatalerr.Channel, tw *fatalerr.Tripwire) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if tw.Tripped() {
			return
		}
		line := scanner.Bytes()
		var resp protocol.ServerResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			fec.Publish(fmt.Errorf("supervisor: reader: parse response: %w", err))
			return
		}
		switch resp.Status {
		case protocol.StatusOK:
			logger.Debugf("supervisor: engine: ok")
		case protocol.StatusError:
			msg := ""
			if resp.Msg != nil {
				msg = *resp.Msg
			}
			logger.Debugf("supervisor: engine: error: %s", msg)
		default:
			fec.Publish(fmt.Errorf("supervisor: reader: unrecognized status %q", resp.Status))
			return
		}
	}
	if err := scanner.Err(); err != nil {
		fec.Publish(fmt.Errorf("supervisor: reader: %w", err))
		return
	}
	if !tw.Tripped() {
		fec.Publish(errors.New("supervisor: reader: connection closed by peer"))
	}
}

// wireMessage translates an observed status token into the wire message
// the binding prescribes. ok is false for a log-only binding or a status
// token absent from a config/layer map — in both cases the writer must
// stay silent.
func wireMessage(b command.Binding, status string) (protocol.ClientMessage, bool) {
	if idx, ok := b.ConfigIndex(status); ok {
		return protocol.NewReloadNum(idx), true
	}
	if name, ok := b.LayerName(status); ok {
		return protocol.NewChangeLayer(name), true
	}
	return protocol.ClientMessage{}, false
}

// dialWithBackoff dials with a 30s connect timeout, retrying on failure
// with full-jitter exponential backoff (100ms base, 10s cap, up to 10
// retries after the first attempt).
func dialWithBackoff(ctx context.Context, port int) (net.Conn, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	b := backoff.New(backoffMinDelay, backoffMaxDelay, backoffMaxRetries)

	var lastErr error
	for {
		dialer := net.Dialer{Timeout: connectTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if b.Exhausted() {
			return nil, fmt.Errorf("dial %s: %w", addr, lastErr)
		}
		delay := b.Next()
		logger.Warnf("supervisor: connect attempt %d failed, retrying in %s: %v", b.Attempts(), delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
