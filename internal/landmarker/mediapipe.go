package landmarker

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/pose"
)

// ErrScriptNotFound is returned when the pose service script cannot be located.
var ErrScriptNotFound = errors.New("pose_service.py not found")

// MediaPipeSource implements Source using a Python MediaPipe pose-landmarker
// subprocess.
type MediaPipeSource struct {
	config    Config
	script    string
	logger    *slog.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeSource creates a new MediaPipe source.
// The Python process is started lazily on the first frame.
func NewMediaPipeSource(config Config, logger *slog.Logger) (*MediaPipeSource, error) {
	script := config.Script
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("pose service script: %w", err)
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MediaPipeSource{
		config: config,
		script: script,
		logger: logger,
	}, nil
}

// Landmarks encodes frame as JPEG, sends it to the service and returns the
// landmarks it found.
func (s *MediaPipeSource) Landmarks(frame *gocv.Mat) ([]pose.Landmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	points, err := exchange(s.stdin, s.stdout, buf.GetBytes())
	if err != nil {
		// A broken pipe leaves the service unusable; restart it on the next frame.
		s.logger.Warn("pose service exchange failed", "error", err)
		s.shutdown()
		return nil, err
	}

	s.resetIdleTimer()
	return points, nil
}

// Close shuts down the Python process.
func (s *MediaPipeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *MediaPipeSource) ensureStarted() error {
	if s.started {
		return nil
	}

	python := s.config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	s.cmd = exec.Command(python, s.script)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	s.logger.Info("pose service started", "python", python, "script", s.script, "pid", s.cmd.Process.Pid)

	return nil
}

func (s *MediaPipeSource) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	s.logger.Debug("pose service stopped")

	return err
}

func (s *MediaPipeSource) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.config.IdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

// exchange writes one length-prefixed image and reads the service's JSON reply line.
func exchange(w io.Writer, r *bufio.Reader, image []byte) ([]pose.Landmark, error) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(image)))

	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(image); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(line)
}

// response is the JSON line written by the pose service for each image.
type response struct {
	Landmarks []jsonPoint `json:"landmarks"`
	Error     string      `json:"error,omitempty"`
}

type jsonPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

func decodeResponse(line []byte) ([]pose.Landmark, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}

	out := make([]pose.Landmark, len(resp.Landmarks))
	for i, p := range resp.Landmarks {
		out[i] = pose.Landmark{X: p.X, Y: p.Y, Confidence: p.Visibility}
	}
	return out, nil
}

func findScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".formcheck/scripts/pose_service.py"),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".formcheck/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
