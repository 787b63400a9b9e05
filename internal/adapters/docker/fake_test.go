package docker

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// execReply is what the fake returns for one exec session.
type execReply struct {
	stdout string
	stderr string
	exit   int
}

type fakeDocker struct {
	t *testing.T

	mu         sync.Mutex
	info       types.ContainerJSON
	inspectErr error
	actionErr  error
	calls      []string
	stopOpts   container.StopOptions

	execCreateErr error
	execFn        func(cmd []string) execReply
	execCmds      [][]string
	pending       map[string]execReply

	logs     io.ReadCloser
	logsErr  error
	logsOpts container.LogsOptions
}

func newFakeDocker(t *testing.T) *fakeDocker {
	return &fakeDocker{
		t:       t,
		info:    runningContainer("abc123"),
		pending: make(map[string]execReply),
		execFn:  func([]string) execReply { return execReply{} },
	}
}

func runningContainer(id string) types.ContainerJSON {
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID: id,
			State: &types.ContainerState{
				Running:   true,
				Status:    "running",
				StartedAt: "2026-10-18T10:00:00Z",
			},
		},
		Config: &container.Config{},
	}
}

func (f *fakeDocker) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDocker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDocker) ContainerInspect(_ context.Context, name string) (types.ContainerJSON, error) {
	f.record("inspect " + name)
	if f.inspectErr != nil {
		return types.ContainerJSON{}, f.inspectErr
	}
	return f.info, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.record("start " + id)
	return f.actionErr
}

func (f *fakeDocker) ContainerStop(_ context.Context, id string, opts container.StopOptions) error {
	f.record("stop " + id)
	f.mu.Lock()
	f.stopOpts = opts
	f.mu.Unlock()
	return f.actionErr
}

func (f *fakeDocker) ContainerRestart(_ context.Context, id string, opts container.StopOptions) error {
	f.record("restart " + id)
	f.mu.Lock()
	f.stopOpts = opts
	f.mu.Unlock()
	return f.actionErr
}

func (f *fakeDocker) ContainerExecCreate(_ context.Context, id string, cfg types.ExecConfig) (types.IDResponse, error) {
	f.record("exec-create " + id)
	if f.execCreateErr != nil {
		return types.IDResponse{}, f.execCreateErr
	}
	if !cfg.AttachStdout || !cfg.AttachStderr {
		f.t.Errorf("exec must attach stdout and stderr")
	}
	reply := f.execFn(cfg.Cmd)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCmds = append(f.execCmds, cfg.Cmd)
	execID := "exec-" + string(rune('a'+len(f.execCmds)))
	f.pending[execID] = reply
	return types.IDResponse{ID: execID}, nil
}

func (f *fakeDocker) ContainerExecAttach(_ context.Context, execID string, _ types.ExecStartCheck) (types.HijackedResponse, error) {
	f.mu.Lock()
	reply := f.pending[execID]
	f.mu.Unlock()

	var buf bytes.Buffer
	if reply.stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(reply.stdout))
	}
	if reply.stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(reply.stderr))
	}
	local, remote := net.Pipe()
	f.t.Cleanup(func() { _ = remote.Close() })
	return types.HijackedResponse{Conn: local, Reader: bufio.NewReader(&buf)}, nil
}

func (f *fakeDocker) ContainerExecInspect(_ context.Context, execID string) (types.ContainerExecInspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.ContainerExecInspect{ExecID: execID, ExitCode: f.pending[execID].exit}, nil
}

func (f *fakeDocker) ContainerLogs(_ context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	f.record("logs " + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logsOpts = opts
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.logs, nil
}

func (f *fakeDocker) Close() error { return nil }

func (f *fakeDocker) LastExec() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.execCmds) == 0 {
		return nil
	}
	return f.execCmds[len(f.execCmds)-1]
}

// trackedBody records whether the consumer closed it.
type trackedBody struct {
	io.Reader
	closer io.Closer
	mu     sync.Mutex
	closed bool
}

func (b *trackedBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

func (b *trackedBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func muxFrames(t *testing.T, frames ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i, f := range frames {
		stream := stdcopy.Stdout
		if i%2 == 1 {
			stream = stdcopy.Stderr
		}
		if _, err := stdcopy.NewStdWriter(&buf, stream).Write([]byte(f)); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}
