package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/melih/hytale-panel/internal/core/domain"
	"github.com/melih/hytale-panel/internal/core/ports"
	"github.com/melih/hytale-panel/internal/metrics"
	"go.uber.org/zap"
)

type outbound = domain.OutboundMessage

// session is the state of one connected client.
type session struct {
	hub    *Hub
	conn   Conn
	ctx    context.Context
	cancel context.CancelFunc
	out    chan outbound
	logger *zap.Logger
}

// push queues a message for the writer. It drops the message once the
// session is closed.
func (s *session) push(event string, data any) {
	select {
	case s.out <- outbound{Event: event, Data: data}:
	case <-s.ctx.Done():
	}
}

// writeLoop is the only goroutine that writes to the connection.
func (s *session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.out:
			if s.ctx.Err() != nil {
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("write failed", zap.String("event", msg.Event), zap.Error(err))
				s.cancel()
				return
			}
		}
	}
}

// activate pushes the initial state and opens the log tail. A nil stream
// means the client gets no live logs.
func (s *session) activate() ports.LogStream {
	bridge := s.hub.bridge
	s.push(domain.EventStatus, bridge.Status(s.ctx))
	s.push(domain.EventFiles, bridge.CheckFiles(s.ctx))

	stream, err := bridge.StreamLogs(s.ctx)
	if err != nil {
		s.logger.Warn("log stream unavailable", zap.Error(err))
		s.push(domain.EventError, "Failed to connect to container: "+err.Error())
		return nil
	}
	go s.forwardLogs(stream)
	return stream
}

func (s *session) forwardLogs(stream ports.LogStream) {
	for {
		chunk, err := stream.Next(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.logger.Warn("log stream ended", zap.Error(err))
			}
			return
		}
		metrics.IncLogChunk()
		s.push(domain.EventLog, chunk)
	}
}

func (s *session) statusLoop() {
	ticker := time.NewTicker(s.hub.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.push(domain.EventStatus, s.hub.bridge.Status(s.ctx))
		}
	}
}

func (s *session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(data)
	}
}

// dispatch starts the requested action. Actions run on a context detached
// from the connection, so they finish even if the client leaves; their
// results are then dropped.
func (s *session) dispatch(data []byte) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.push(domain.EventError, "invalid message: "+err.Error())
		return
	}
	actx := context.WithoutCancel(s.ctx)

	switch msg.Event {
	case domain.EventCommand:
		go s.runCommand(actx, msg.Data)
	case domain.EventStart, domain.EventStop, domain.EventRestart:
		go s.runLifecycle(actx, msg.Event)
	case domain.EventDownload:
		go s.runDownload(actx)
	case domain.EventCheckFiles:
		go func() { s.push(domain.EventFiles, s.hub.bridge.CheckFiles(actx)) }()
	default:
		s.push(domain.EventError, fmt.Sprintf("unknown event %q", msg.Event))
	}
}

func (s *session) runCommand(ctx context.Context, payload json.RawMessage) {
	cmd, err := parseCommand(payload)
	var res domain.ActionResult
	if err != nil {
		res = domain.Failed(err)
	} else {
		res = s.hub.bridge.SendConsoleCommand(ctx, cmd)
		s.logger.Info("console command", zap.String("cmd", cmd), zap.Bool("success", res.Success))
	}
	metrics.ObserveAction(domain.EventCommand, res.Success)
	s.push(domain.EventCommandResult, domain.CommandResult{Cmd: cmd, ActionResult: res})
}

// parseCommand accepts {"cmd": "..."} or a bare JSON string.
func parseCommand(payload json.RawMessage) (string, error) {
	var cmd string
	if err := json.Unmarshal(payload, &cmd); err != nil {
		var req domain.CommandRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return "", fmt.Errorf("invalid command payload")
		}
		cmd = req.Cmd
	}
	if strings.TrimSpace(cmd) == "" {
		return cmd, fmt.Errorf("command is empty")
	}
	return cmd, nil
}

func (s *session) runLifecycle(ctx context.Context, action string) {
	s.push(domain.EventActionStatus, domain.ActionStatus{Action: action, Status: domain.ProgressStarting})

	var res domain.ActionResult
	switch action {
	case domain.EventStart:
		res = s.hub.bridge.Start(ctx)
	case domain.EventStop:
		res = s.hub.bridge.Stop(ctx)
	case domain.EventRestart:
		res = s.hub.bridge.Restart(ctx)
	}
	s.logger.Info("container action", zap.String("action", action), zap.Bool("success", res.Success))
	metrics.ObserveAction(action, res.Success)
	s.push(domain.EventActionStatus, domain.ActionStatus{Action: action, ActionResult: &res})
}

func (s *session) runDownload(ctx context.Context) {
	s.push(domain.EventDownloadStatus, domain.DownloadStatus{
		Status:  domain.ProgressStarting,
		Message: "Starting download...",
	})

	res := s.hub.bridge.DownloadFiles(ctx)
	status := domain.ProgressComplete
	if !res.Success {
		status = domain.ProgressError
	}
	metrics.ObserveAction(domain.EventDownload, res.Success)
	s.push(domain.EventDownloadStatus, domain.DownloadStatus{Status: status, ActionResult: &res})
	s.push(domain.EventFiles, s.hub.bridge.CheckFiles(ctx))
}
