package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/landmarker"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/replay"
	"github.com/ayusman/formcheck/internal/server"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
	"github.com/ayusman/formcheck/testdata"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadRecording(t *testing.T, name string) ([]byte, []replay.Message) {
	t.Helper()
	data, err := testdata.Sequence(name)
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := replay.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("replay.Read() error = %v", err)
	}
	return data, msgs
}

func offline(t *testing.T, msgs []replay.Message) *replay.Report {
	t.Helper()
	report, err := replay.Run(context.Background(), analysis.DefaultConfig(), msgs, discard)
	if err != nil {
		t.Fatalf("replay.Run() error = %v", err)
	}
	return report
}

type serverReply struct {
	Type    string           `json:"type"`
	Result  *analysis.Result `json:"result"`
	Summary *session.Record  `json:"summary"`
	Error   string           `json:"error"`
}

func read(t *testing.T, conn *websocket.Conn) serverReply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg serverReply
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read server message: %v", err)
	}
	return msg
}

// A recording streamed by a browser must be analyzed exactly as the replay
// command analyzes it offline.
func TestE2E_BrowserSessionMatchesReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	data, msgs := loadRecording(t, testdata.SquatTwoReps)
	want := offline(t, msgs)

	s := openStore(t)
	srv := server.New(server.Config{Store: s, Analysis: analysis.DefaultConfig(), Logger: discard})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var frames int
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			t.Fatalf("write: %v", err)
		}
		// One reply per message keeps the frame mailbox from dropping frames.
		reply := read(t, conn)
		if reply.Type == "error" {
			t.Fatalf("server error: %s", reply.Error)
		}
		if reply.Type != "analysis" {
			continue
		}
		expected := want.Frames[frames].Result
		got := *reply.Result
		if got.Reps != expected.Reps || got.Phase != expected.Phase || got.Grade != expected.Grade {
			t.Fatalf("frame %d: got reps=%d phase=%s grade=%s, want reps=%d phase=%s grade=%s",
				frames, got.Reps, got.Phase, got.Grade, expected.Reps, expected.Phase, expected.Grade)
		}
		frames++
	}
	if frames != len(want.Frames) {
		t.Fatalf("analyzed %d frames, want %d", frames, len(want.Frames))
	}

	if err := conn.WriteJSON(map[string]string{"type": "end"}); err != nil {
		t.Fatalf("write end: %v", err)
	}
	summary := read(t, conn)
	if summary.Type != "summary" || summary.Summary == nil {
		t.Fatalf("expected summary, got %+v", summary)
	}
	if summary.Summary.Reps != want.Sessions[0].Reps {
		t.Errorf("summary reps = %d, want %d", summary.Summary.Reps, want.Sessions[0].Reps)
	}

	resp, err := ts.Client().Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var list struct {
		Sessions []struct {
			ID     string `json:"id"`
			Origin string `json:"origin"`
			Reps   uint32 `json:"reps"`
		} `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].Origin != "browser" || list.Sessions[0].Reps != 2 {
		t.Fatalf("sessions = %+v, want one browser session with 2 reps", list.Sessions)
	}
}

// The camera pipeline's Process path analyzes validated landmarks the same way.
func TestE2E_CameraSessionMatchesReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	_, msgs := loadRecording(t, testdata.Dropout)
	want := offline(t, msgs)

	s := openStore(t)
	dir := t.TempDir()
	application, err := app.New(app.Config{
		Store:     s,
		PluginDir: filepath.Join(dir, "plugins"),
		Source:    landmarker.Config{Script: filepath.Join(dir, "missing.py")},
		Analysis:  analysis.DefaultConfig(),
		Logger:    discard,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	i := 0
	for _, msg := range msgs {
		if msg.Type != replay.TypeFrame {
			continue
		}
		var points []pose.Landmark
		if f, err := pose.Validate(msg.Landmarks, msg.Timestamp); err == nil {
			points = f.Landmarks()
		}
		got := application.Process(points, msg.Timestamp)
		if got.Degraded != want.Frames[i].Result.Degraded {
			t.Fatalf("frame %d: degraded = %v, want %v", i, got.Degraded, want.Frames[i].Result.Degraded)
		}
		i++
	}

	stats := application.Stats()
	if stats.FramesFailed != want.Stats.FramesFailed || stats.FallbackActive {
		t.Errorf("stats = %+v, want %d failed frames and no fallback", stats, want.Stats.FramesFailed)
	}
	application.Stop()

	records, err := s.Sessions().List(store.ListOptions{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("logged %d sessions, want 1", len(records))
	}
	if records[0].Origin != session.OriginCamera || records[0].DegradedFrames != 4 {
		t.Errorf("session = %+v, want a camera session with 4 degraded frames", records[0])
	}
}
