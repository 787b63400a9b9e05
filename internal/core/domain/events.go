package domain

import "encoding/json"

// Event names exchanged with dashboard clients.
const (
	EventStatus         = "status"
	EventFiles          = "files"
	EventLog            = "log"
	EventError          = "error"
	EventCommand        = "command"
	EventCommandResult  = "command-result"
	EventDownload       = "download"
	EventDownloadStatus = "download-status"
	EventStart          = "start"
	EventStop           = "stop"
	EventRestart        = "restart"
	EventActionStatus   = "action-status"
	EventCheckFiles     = "check-files"
)

// Progress values carried in action-status and download-status.
const (
	ProgressStarting = "starting"
	ProgressComplete = "complete"
	ProgressError    = "error"
)

// Message is the envelope for every frame on the client channel.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is the envelope written to clients.
type OutboundMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// CommandRequest is the payload of an inbound command event.
type CommandRequest struct {
	Cmd string `json:"cmd"`
}

// CommandResult echoes the requested command with its outcome.
type CommandResult struct {
	Cmd string `json:"cmd"`
	ActionResult
}

// ActionStatus reports progress or the outcome of start/stop/restart.
// Result is nil while the action is still running.
type ActionStatus struct {
	Action string `json:"action"`
	Status string `json:"status,omitempty"`
	*ActionResult
}

// DownloadStatus reports progress or the outcome of an asset download.
type DownloadStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	*ActionResult
}
