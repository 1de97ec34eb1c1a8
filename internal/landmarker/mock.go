package landmarker

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/pose"
)

// MockSource is a test implementation of Source. It replays a fixed sequence of
// frames, repeating the last one once the sequence is exhausted.
type MockSource struct {
	mu     sync.Mutex
	frames []pose.Frame
	next   int
	err    error
	calls  int
	closed bool
}

// NewMockSource creates a MockSource returning frames in order.
func NewMockSource(frames ...pose.Frame) *MockSource {
	return &MockSource{frames: frames}
}

// SetFrames replaces the sequence and rewinds it.
func (m *MockSource) SetFrames(frames ...pose.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.next = 0
}

// SetError sets the error that will be returned by Landmarks.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Landmarks returns the next pre-configured frame or error.
func (m *MockSource) Landmarks(frame *gocv.Mat) ([]pose.Landmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		return nil, nil
	}
	f := m.frames[min(m.next, len(m.frames)-1)]
	if m.next < len(m.frames) {
		m.next++
	}
	return f.Landmarks(), nil
}

// Calls returns how many times Landmarks was called.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
