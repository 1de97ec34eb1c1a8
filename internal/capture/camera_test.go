package capture

import (
	"errors"
	"testing"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want Config
	}{
		{"zero config", Config{}, Config{FPS: 15, Width: 640, Height: 480}},
		{"second device", Config{DeviceID: 1}, Config{DeviceID: 1, FPS: 15, Width: 640, Height: 480}},
		{"custom rate", Config{FPS: 30, Width: 1280, Height: 720}, Config{FPS: 30, Width: 1280, Height: 720}},
		{"half a resolution", Config{FPS: 10, Width: 1280}, Config{FPS: 10, Width: 640, Height: 480}},
		{"negative rate", Config{FPS: -1}, Config{FPS: 15, Width: 640, Height: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.cfg).(*cameraImpl)
			if cam.cfg != tt.want {
				t.Errorf("config = %+v, want %+v", cam.cfg, tt.want)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open before Open()")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	for _, step := range []struct{ set, want int }{
		{10, 10},
		{5, 5},
		{0, 5},
		{-5, 5},
		{DefaultFPS, DefaultFPS},
	} {
		cam.SetFPS(step.set)
		if got := cam.FPS(); got != step.want {
			t.Errorf("after SetFPS(%d): FPS() = %d, want %d", step.set, got, step.want)
		}
	}
}

func TestCamera_Closed(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a closed camera = %v, want nil", err)
	}
}

func TestCamera_Device(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping device test in short mode")
	}

	cam := NewCamera(DefaultConfig())
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	defer cam.Close()

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	defer mat.Close()
	if mat.Empty() {
		t.Error("ReadFrame() returned an empty frame")
	}
	t.Logf("device delivers %dx%d", mat.Cols(), mat.Rows())
}
