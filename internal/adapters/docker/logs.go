package docker

import (
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/melih/hytale-panel/internal/core/ports"
)

// StreamLogs follows the container output, starting with the last LogTail
// lines. Each chunk is one demultiplexed frame (or one read for TTY
// containers, whose output is not multiplexed).
func (a *Adapter) StreamLogs(ctx context.Context) (ports.LogStream, error) {
	h, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := a.cli.ContainerLogs(ctx, h.id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       strconv.Itoa(a.opts.LogTail),
		Timestamps: true,
	})
	if err != nil {
		return nil, err
	}
	return newLogStream(rc, h.tty), nil
}

type logStream struct {
	rc        io.ReadCloser
	chunks    chan string
	done      chan struct{}
	err       error // set before chunks is closed
	closeOnce sync.Once
	closeErr  error
}

func newLogStream(rc io.ReadCloser, tty bool) *logStream {
	s := &logStream{
		rc:     rc,
		chunks: make(chan string),
		done:   make(chan struct{}),
	}
	go s.pump(tty)
	return s
}

func (s *logStream) pump(tty bool) {
	w := chunkWriter{s}
	var err error
	if tty {
		_, err = io.Copy(w, s.rc)
	} else {
		_, err = stdcopy.StdCopy(w, w, s.rc)
	}
	if err == nil {
		err = io.EOF
	}
	s.err = err
	close(s.chunks)
}

func (s *logStream) Next(ctx context.Context) (string, error) {
	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			return "", s.err
		}
		return chunk, nil
	case <-s.done:
		return "", io.ErrClosedPipe
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *logStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}

// chunkWriter hands every Write to the reader side as one chunk.
type chunkWriter struct{ s *logStream }

func (w chunkWriter) Write(p []byte) (int, error) {
	select {
	case w.s.chunks <- string(p):
		return len(p), nil
	case <-w.s.done:
		return 0, io.ErrClosedPipe
	}
}
