package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a plugin does not answer within the executor timeout.
var ErrTimeout = errors.New("plugin execution timeout")

// ExecError reports a plugin process that exited abnormally.
type ExecError struct {
	Plugin string
	// Stderr is the trimmed error output of the process, if any.
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("plugin %s: %v", e.Plugin, e.Err)
	}
	return fmt.Sprintf("plugin %s: %v: %s", e.Plugin, e.Err, e.Stderr)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor runs plugins, one process per request, bounded by a timeout.
type Executor struct {
	timeout time.Duration
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute starts the plugin in its own directory, writes req to its stdin and
// decodes its stdout. A Response with Success false is not an error.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s: %w after %s", p.Manifest.Name, ErrTimeout, e.timeout)
	}
	if runErr != nil {
		return nil, &ExecError{Plugin: p.Manifest.Name, Stderr: strings.TrimSpace(stderr.String()), Err: runErr}
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("plugin %s: decode response %q: %w", p.Manifest.Name, strings.TrimSpace(stdout.String()), err)
	}
	return &resp, nil
}
