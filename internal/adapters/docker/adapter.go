package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/melih/hytale-panel/internal/core/domain"
	"go.uber.org/zap"
)

// dockerAPI is the subset of the Docker SDK client the adapter uses.
type dockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	Close() error
}

// Options configures the adapter. Zero values fall back to the defaults below.
type Options struct {
	ContainerName   string
	AssetDir        string
	ConsolePath     string
	Downloader      string
	DownloadPath    string
	LogTail         int
	DownloadTimeout time.Duration // 0 means no limit
	StopTimeout     time.Duration // 0 lets the runtime decide
}

const (
	DefaultContainerName = "hytale-server"
	DefaultAssetDir      = "/opt/hytale"
	DefaultConsolePath   = "/tmp/hytale-console"
	DefaultDownloader    = "hytale-downloader"
	DefaultDownloadPath  = "/tmp/hytale-game.zip"
	DefaultLogTail       = 100
)

func (o Options) withDefaults() Options {
	if o.ContainerName == "" {
		o.ContainerName = DefaultContainerName
	}
	if o.AssetDir == "" {
		o.AssetDir = DefaultAssetDir
	}
	if o.ConsolePath == "" {
		o.ConsolePath = DefaultConsolePath
	}
	if o.Downloader == "" {
		o.Downloader = DefaultDownloader
	}
	if o.DownloadPath == "" {
		o.DownloadPath = DefaultDownloadPath
	}
	if o.LogTail <= 0 {
		o.LogTail = DefaultLogTail
	}
	return o
}

// Adapter implements ports.ContainerBridge using the Docker SDK.
type Adapter struct {
	cli    dockerAPI
	opts   Options
	locks  *keyedLock
	logger *zap.Logger
}

// NewAdapter creates a Docker-backed bridge for the container named in opts.
func NewAdapter(opts Options, logger *zap.Logger) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newAdapter(cli, opts, logger), nil
}

func newAdapter(cli dockerAPI, opts Options, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Adapter{
		cli:    cli,
		opts:   opts,
		locks:  newKeyedLock(),
		logger: logger.With(zap.String("container", opts.ContainerName)),
	}
}

// Close releases the underlying Docker client.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

// handle is a container reference valid for a single operation.
type handle struct {
	id    string
	tty   bool
	state *types.ContainerState
}

// resolve looks the container up by name. A missing container maps to
// domain.ErrContainerNotFound.
func (a *Adapter) resolve(ctx context.Context) (handle, error) {
	info, err := a.cli.ContainerInspect(ctx, a.opts.ContainerName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return handle{}, domain.ErrContainerNotFound
		}
		return handle{}, fmt.Errorf("failed to inspect container: %w", err)
	}
	if info.ContainerJSONBase == nil {
		return handle{}, fmt.Errorf("failed to inspect container: empty response")
	}
	h := handle{id: info.ID, state: info.State}
	if info.Config != nil {
		h.tty = info.Config.Tty
	}
	return h, nil
}

// Status inspects the container. Failures are folded into a "not found"
// snapshot so callers always have something to render.
func (a *Adapter) Status(ctx context.Context) domain.Status {
	h, err := a.resolve(ctx)
	if err != nil {
		return domain.Status{Running: false, Status: domain.StatusNotFound, Error: err.Error()}
	}
	if h.state == nil {
		return domain.Status{Running: false, Status: domain.StatusNotFound, Health: domain.HealthUnknown}
	}
	st := domain.Status{
		Running:   h.state.Running,
		Status:    h.state.Status,
		StartedAt: h.state.StartedAt,
		Health:    domain.HealthUnknown,
	}
	if h.state.Health != nil && h.state.Health.Status != "" {
		st.Health = h.state.Health.Status
	}
	return st
}

// Start starts the container.
func (a *Adapter) Start(ctx context.Context) domain.ActionResult {
	return a.lifecycle(ctx, "start", func(ctx context.Context, id string) error {
		return a.cli.ContainerStart(ctx, id, container.StartOptions{})
	})
}

// Stop stops the container, waiting StopTimeout before the runtime kills it.
func (a *Adapter) Stop(ctx context.Context) domain.ActionResult {
	return a.lifecycle(ctx, "stop", func(ctx context.Context, id string) error {
		return a.cli.ContainerStop(ctx, id, a.stopOptions())
	})
}

// Restart restarts the container.
func (a *Adapter) Restart(ctx context.Context) domain.ActionResult {
	return a.lifecycle(ctx, "restart", func(ctx context.Context, id string) error {
		return a.cli.ContainerRestart(ctx, id, a.stopOptions())
	})
}

func (a *Adapter) stopOptions() container.StopOptions {
	var opts container.StopOptions
	if a.opts.StopTimeout > 0 {
		secs := int(a.opts.StopTimeout / time.Second)
		opts.Timeout = &secs
	}
	return opts
}

// lifecycle runs fn under the per-container lock so overlapping
// start/stop/restart requests reach the runtime one at a time.
func (a *Adapter) lifecycle(ctx context.Context, action string, fn func(context.Context, string) error) domain.ActionResult {
	unlock, err := a.locks.Lock(ctx, a.opts.ContainerName)
	if err != nil {
		return domain.Failed(err)
	}
	defer unlock()

	h, err := a.resolve(ctx)
	if err != nil {
		return domain.Failed(err)
	}
	if err := fn(ctx, h.id); err != nil {
		a.logger.Warn("container action failed", zap.String("action", action), zap.Error(err))
		return domain.Failed(err)
	}
	a.logger.Info("container action completed", zap.String("action", action))
	return domain.Succeeded()
}
