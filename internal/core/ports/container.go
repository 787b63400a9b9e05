package ports

import (
	"context"

	"github.com/melih/hytale-panel/internal/core/domain"
)

// ContainerBridge defines the operations the panel performs on the single
// container it manages. Implementations resolve the container on every call
// rather than caching a handle.
type ContainerBridge interface {
	// Status never fails; an unreachable or missing container is reported
	// as domain.StatusNotFound.
	Status(ctx context.Context) domain.Status
	RunCommand(ctx context.Context, argv ...string) (domain.ExecResult, error)
	SendConsoleCommand(ctx context.Context, cmd string) domain.ActionResult
	CheckFiles(ctx context.Context) domain.FileReadiness
	DownloadFiles(ctx context.Context) domain.ActionResult
	Start(ctx context.Context) domain.ActionResult
	Stop(ctx context.Context) domain.ActionResult
	Restart(ctx context.Context) domain.ActionResult
	StreamLogs(ctx context.Context) (LogStream, error)
}

// LogStream is a live tail of container output. Next blocks until a chunk
// arrives, ctx is done, or the stream ends with io.EOF.
type LogStream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}
