package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func seedSession(t *testing.T, s *store.Store, id string, ex exercise.Type, started time.Time, reps uint32) *session.Record {
	t.Helper()

	rec := &session.Record{
		ID:           id,
		Exercise:     ex,
		Origin:       session.OriginCamera,
		StartedAt:    started,
		EndedAt:      started.Add(90 * time.Second),
		Frames:       1350,
		Reps:         reps,
		AvgFormScore: 0.8,
		BestGrade:    analysis.GradeA,
		Corrections: []session.CorrectionCount{
			{Text: "Keep your knees over your toes", Count: 4},
		},
	}
	if err := s.Sessions().Create(rec); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return rec
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedSession(t, s, "s1", exercise.Squat, base, 10)
	seedSession(t, s, "s2", exercise.Lunge, base.Add(time.Hour), 6)
	seedSession(t, s, "s3", exercise.Squat, base.Add(2*time.Hour), 12)

	t.Run("newest first with totals", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Sessions) != 3 {
			t.Fatalf("expected 3 sessions, got %d", len(response.Sessions))
		}
		if response.Sessions[0].ID != "s3" {
			t.Errorf("expected newest session s3 first, got %s", response.Sessions[0].ID)
		}
		if response.Sessions[0].DurationMS != 90000 {
			t.Errorf("expected duration 90000ms, got %d", response.Sessions[0].DurationMS)
		}
		if len(response.Totals) != 2 {
			t.Fatalf("expected totals for 2 exercises, got %d", len(response.Totals))
		}
		if response.Totals[1].Exercise != exercise.Squat || response.Totals[1].Reps != 22 {
			t.Errorf("unexpected squat totals %+v", response.Totals[1])
		}
	})

	t.Run("filters by exercise and limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions?exercise=squat&limit=1", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		var response listSessionsResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if len(response.Sessions) != 1 || response.Sessions[0].ID != "s3" {
			t.Errorf("expected only s3, got %+v", response.Sessions)
		}
	})

	t.Run("rejects bad query", func(t *testing.T) {
		for _, q := range []string{"?exercise=burpee", "?limit=0", "?limit=abc"} {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions"+q, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
			}
		}
	})
}

func TestSessionHandler_List_Empty(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Body.String() != "{\"sessions\":[],\"totals\":[]}\n" {
		t.Errorf("expected empty arrays, got %s", rec.Body.String())
	}
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	seedSession(t, s, "s1", exercise.Squat, time.Now().UTC(), 8)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Reps != 8 || response.BestGrade != "A" {
		t.Errorf("unexpected session %+v", response)
	}
	if len(response.Corrections) != 1 || response.Corrections[0].Count != 4 {
		t.Errorf("expected corrections to be loaded, got %+v", response.Corrections)
	}
}

func TestSessionHandler_Get_NotFound(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	seedSession(t, s, "s1", exercise.Squat, time.Now().UTC(), 8)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if _, err := s.Sessions().GetByID("s1"); err != store.ErrNotFound {
		t.Errorf("expected session to be deleted, got %v", err)
	}

	t.Run("missing session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodPost, "/api/sessions", "GET"},
		{http.MethodDelete, "/api/sessions", "GET"},
		{http.MethodPut, "/api/sessions/s1", "GET, DELETE"},
		{http.MethodPatch, "/api/sessions/s1", "GET, DELETE"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != tt.allow {
			t.Errorf("%s %s: Allow = %q, want %q", tt.method, tt.path, allow, tt.allow)
		}
	}
}
