package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/melih/hytale-panel/internal/core/domain"
	"github.com/melih/hytale-panel/internal/metrics"
	"go.uber.org/zap"
)

// Names of the server files the panel looks for in the asset directory.
const (
	JarName    = "HytaleServer.jar"
	AssetsName = "Assets.zip"
)

const (
	consoleScript  = `printf '%s\n' "$1" > "$2"`
	listingScript  = `ls -la "$1"/*.jar "$1"/*.zip 2>/dev/null || echo "NO_FILES"`
	downloadScript = `cd "$1" && "$2" --download-path "$3" 2>&1`
)

// shell builds an argv that runs script with args bound to $1..$n. Values
// are never spliced into the script text.
func shell(script string, args ...string) []string {
	return append([]string{"sh", "-c", script, "sh"}, args...)
}

// RunCommand executes argv inside the container and returns stdout and
// stderr interleaved in arrival order.
func (a *Adapter) RunCommand(ctx context.Context, argv ...string) (domain.ExecResult, error) {
	h, err := a.resolve(ctx)
	if err != nil {
		return domain.ExecResult{}, err
	}
	return a.exec(ctx, h, argv)
}

func (a *Adapter) exec(ctx context.Context, h handle, argv []string) (domain.ExecResult, error) {
	created, err := a.cli.ContainerExecCreate(ctx, h.id, types.ExecConfig{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("failed to create exec: %w", err)
	}

	resp, err := a.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("failed to start exec: %w", err)
	}
	defer resp.Close()
	// The hijacked connection ignores ctx; closing it unblocks the copy.
	stop := context.AfterFunc(ctx, resp.Close)
	defer stop()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, resp.Reader); err != nil {
		if ctx.Err() != nil {
			return domain.ExecResult{Output: out.String()}, fmt.Errorf("exec interrupted: %w", ctx.Err())
		}
		return domain.ExecResult{Output: out.String()}, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := a.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return domain.ExecResult{Output: out.String()}, fmt.Errorf("failed to inspect exec: %w", err)
	}
	return domain.ExecResult{Output: out.String(), ExitCode: inspect.ExitCode}, nil
}

// SendConsoleCommand writes cmd to the console path watched by the server
// process.
func (a *Adapter) SendConsoleCommand(ctx context.Context, cmd string) domain.ActionResult {
	unlock, err := a.locks.Lock(ctx, a.opts.ContainerName)
	if err != nil {
		return domain.Failed(err)
	}
	defer unlock()

	start := time.Now()
	res, err := a.RunCommand(ctx, shell(consoleScript, cmd, a.opts.ConsolePath)...)
	metrics.ObserveExec("console", time.Since(start))
	if err != nil {
		return domain.Failed(err)
	}
	if res.ExitCode != 0 {
		return domain.Failed(fmt.Errorf("console write exited with code %d: %s", res.ExitCode, strings.TrimSpace(res.Output)))
	}
	return domain.Succeeded()
}

// CheckFiles lists the asset directory. Any failure reports both files
// as missing.
func (a *Adapter) CheckFiles(ctx context.Context) domain.FileReadiness {
	start := time.Now()
	res, err := a.RunCommand(ctx, shell(listingScript, a.opts.AssetDir)...)
	metrics.ObserveExec("check-files", time.Since(start))
	if err != nil {
		a.logger.Debug("file check failed", zap.Error(err))
		return domain.NewFileReadiness(false, false)
	}
	return ParseFileListing(res.Output)
}

// ParseFileListing matches the expected file names in ls output.
func ParseFileListing(listing string) domain.FileReadiness {
	return domain.NewFileReadiness(
		strings.Contains(listing, JarName),
		strings.Contains(listing, AssetsName),
	)
}

// DownloadFiles runs the downloader inside the container. It is bounded only
// by DownloadTimeout, if set.
func (a *Adapter) DownloadFiles(ctx context.Context) domain.ActionResult {
	unlock, err := a.locks.Lock(ctx, a.opts.ContainerName)
	if err != nil {
		return domain.Failed(err)
	}
	defer unlock()

	if a.opts.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.DownloadTimeout)
		defer cancel()
	}

	a.logger.Info("starting asset download", zap.String("downloader", a.opts.Downloader))
	start := time.Now()
	res, err := a.RunCommand(ctx, shell(downloadScript, a.opts.AssetDir, a.opts.Downloader, a.opts.DownloadPath)...)
	metrics.ObserveExec("download", time.Since(start))
	if err != nil {
		a.logger.Warn("asset download failed", zap.Error(err))
		return domain.ActionResult{Success: false, Error: err.Error(), Output: res.Output}
	}
	if res.ExitCode != 0 {
		a.logger.Warn("downloader exited with error", zap.Int("exit_code", res.ExitCode))
		return domain.ActionResult{
			Success: false,
			Error:   fmt.Sprintf("downloader exited with code %d", res.ExitCode),
			Output:  res.Output,
		}
	}
	a.logger.Info("asset download completed", zap.Duration("took", time.Since(start)))
	return domain.ActionResult{Success: true, Output: res.Output}
}
