package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/melih/hytale-panel/internal/core/domain"
	"github.com/melih/hytale-panel/internal/core/ports"
)

type fakeBridge struct {
	mu        sync.Mutex
	status    domain.Status
	files     domain.FileReadiness
	results   map[string]domain.ActionResult
	consoleFn func(ctx context.Context, cmd string) domain.ActionResult
	stream    *fakeStream
	streamErr error
	calls     []string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		status:  domain.Status{Running: true, Status: "running", Health: domain.HealthUnknown},
		files:   domain.NewFileReadiness(true, true),
		results: make(map[string]domain.ActionResult),
		stream:  newFakeStream(),
	}
}

func (f *fakeBridge) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBridge) result(action string) domain.ActionResult {
	f.record(action)
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[action]; ok {
		return res
	}
	return domain.Succeeded()
}

func (f *fakeBridge) Status(context.Context) domain.Status {
	f.record("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeBridge) RunCommand(context.Context, ...string) (domain.ExecResult, error) {
	return domain.ExecResult{}, errors.New("not used")
}

func (f *fakeBridge) SendConsoleCommand(ctx context.Context, cmd string) domain.ActionResult {
	f.record("command " + cmd)
	if f.consoleFn != nil {
		return f.consoleFn(ctx, cmd)
	}
	return domain.Succeeded()
}

func (f *fakeBridge) CheckFiles(context.Context) domain.FileReadiness {
	f.record("check-files")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files
}

func (f *fakeBridge) DownloadFiles(context.Context) domain.ActionResult {
	return f.result("download")
}

func (f *fakeBridge) Start(context.Context) domain.ActionResult   { return f.result("start") }
func (f *fakeBridge) Stop(context.Context) domain.ActionResult    { return f.result("stop") }
func (f *fakeBridge) Restart(context.Context) domain.ActionResult { return f.result("restart") }

func (f *fakeBridge) StreamLogs(context.Context) (ports.LogStream, error) {
	f.record("logs")
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.stream, nil
}

type fakeStream struct {
	chunks    chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{chunks: make(chan string, 16), closed: make(chan struct{})}
}

func (s *fakeStream) Next(ctx context.Context) (string, error) {
	select {
	case c := <-s.chunks:
		return c, nil
	case <-s.closed:
		return "", io.ErrClosedPipe
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeConn feeds client frames from in and records every written envelope.
type fakeConn struct {
	in        chan []byte
	written   chan domain.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan []byte, 16),
		written: make(chan domain.Message, 256),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b, ok := <-c.in:
		if !ok {
			return 0, nil, io.EOF
		}
		return 1, b, nil
	case <-c.done:
		return 0, nil, io.ErrClosedPipe
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg domain.Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return err
	}
	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}
	c.written <- msg
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// send queues a client frame.
func (c *fakeConn) send(t *testing.T, event string, data any) {
	t.Helper()
	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	b, err := json.Marshal(frame)
	if err != nil {
		t.Fatal(err)
	}
	c.in <- b
}

// next returns the next written message whose event is one of events,
// skipping the rest.
func (c *fakeConn) next(t *testing.T, events ...string) domain.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.written:
			for _, e := range events {
				if msg.Event == e {
					return msg
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", events)
		}
	}
}

func decode[T any](t *testing.T, msg domain.Message) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", msg.Event, err)
	}
	return v
}

// serve runs a session in the background and returns a channel closed when
// it ends.
func serve(t *testing.T, bridge ports.ContainerBridge, interval time.Duration) (*fakeConn, <-chan struct{}) {
	t.Helper()
	conn := newFakeConn()
	hub := NewHub(bridge, interval, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Serve(context.Background(), conn)
	}()
	t.Cleanup(func() {
		_ = conn.Close()
		<-done
	})
	return conn, done
}
