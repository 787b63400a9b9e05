package domain

import "errors"

// ErrContainerNotFound is returned when the managed container does not exist.
var ErrContainerNotFound = errors.New("Container not found")

// StatusNotFound is reported when the container cannot be inspected.
const StatusNotFound = "not found"

// HealthUnknown is reported when the container has no healthcheck.
const HealthUnknown = "unknown"

// Status is a point-in-time snapshot of the managed container.
type Status struct {
	Running   bool   `json:"running"`
	Status    string `json:"status"` // running, exited, not found, etc.
	StartedAt string `json:"startedAt,omitempty"`
	Health    string `json:"health,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FileReadiness tells whether the server jar and asset archive are present.
type FileReadiness struct {
	HasJar    bool `json:"hasJar"`
	HasAssets bool `json:"hasAssets"`
	Ready     bool `json:"ready"`
}

// NewFileReadiness derives Ready from the two flags.
func NewFileReadiness(hasJar, hasAssets bool) FileReadiness {
	return FileReadiness{HasJar: hasJar, HasAssets: hasAssets, Ready: hasJar && hasAssets}
}

// ActionResult is the outcome of a single lifecycle or exec request.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Output  string `json:"output,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded() ActionResult { return ActionResult{Success: true} }

// Failed builds a failed result carrying err's message.
func Failed(err error) ActionResult {
	return ActionResult{Success: false, Error: err.Error()}
}

// ExecResult is the collected output of a command run inside the container.
type ExecResult struct {
	Output   string
	ExitCode int
}
