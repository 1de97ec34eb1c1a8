package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/session"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string // plugin:action
	reqs  []plugin.Request
	err   error
}

func (r *recordingRunner) Execute(_ context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p.Manifest.Name+":"+req.Action)
	r.reqs = append(r.reqs, *req)
	if r.err != nil {
		return nil, r.err
	}
	return &plugin.Response{Success: true}, nil
}

func (r *recordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func TestFeedback_Decide(t *testing.T) {
	clock := &stepClock{t: time.Unix(1000, 0)}
	f := NewFeedback(FeedbackConfig{Enabled: true, MinInterval: 3 * time.Second}, nil, nil, nil)
	f.now = clock.now

	cue := func(c ...string) analysis.Result {
		return analysis.Result{Exercise: exercise.Squat, Corrections: c, Grade: analysis.GradeB}
	}

	got := f.decide(cue("Keep your chest up", "Push your knees out"))
	require.Len(t, got, 1)
	assert.Equal(t, plugin.ActionCue, got[0].Action)
	assert.Equal(t, "Keep your chest up", got[0].Text)
	assert.Equal(t, "squat", got[0].Exercise)

	clock.t = clock.t.Add(5 * time.Second)
	assert.Empty(t, f.decide(cue("Keep your chest up")), "unchanged cue is not repeated")

	clock.t = clock.t.Add(time.Second)
	got = f.decide(cue("Push your knees out"))
	require.Len(t, got, 1, "new cue after the interval")

	clock.t = clock.t.Add(time.Second)
	assert.Empty(t, f.decide(cue("Keep your chest up")), "within the interval")

	t.Run("rep completion is always announced", func(t *testing.T) {
		got := f.decide(analysis.Result{Exercise: exercise.Squat, RepCompleted: true, Reps: 4, Grade: analysis.GradeA})
		require.Len(t, got, 1)
		assert.Equal(t, plugin.Request{Action: plugin.ActionRep, Exercise: "squat", Reps: 4, Grade: "A"}, got[0])
	})

	t.Run("disabled", func(t *testing.T) {
		off := NewFeedback(FeedbackConfig{}, nil, nil, nil)
		assert.Empty(t, off.decide(analysis.Result{RepCompleted: true, Corrections: []string{"x"}}))
	})
}

func writePlugin(t *testing.T, root, name string, actions ...string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(plugin.Manifest{Name: name, Executable: name, Actions: actions})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, plugin.ManifestFile), data, 0644))
}

func TestFeedback_Deliver(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "speak", plugin.ActionCue, plugin.ActionRep, plugin.ActionSummary)
	writePlugin(t, root, "journal", plugin.ActionSummary)

	mgr := plugin.NewManager(root, nil)
	require.NoError(t, mgr.Discover())

	run := &recordingRunner{}
	f := NewFeedback(FeedbackConfig{
		Enabled:      true,
		Plugins:      []string{"speak", "journal", "missing"},
		PluginConfig: map[string]json.RawMessage{"journal": json.RawMessage(`{"path":"/tmp/j.log"}`)},
	}, mgr, run, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	f.Observe(analysis.Result{Exercise: exercise.Squat, RepCompleted: true, Reps: 1})
	f.Summary(&session.Record{Exercise: exercise.Squat, Reps: 1, BestGrade: analysis.GradeA})
	f.Summary(&session.Record{Exercise: exercise.Squat})

	require.Eventually(t, func() bool { return len(run.Calls()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"speak:rep", "speak:summary", "journal:summary"}, run.Calls())

	run.mu.Lock()
	assert.JSONEq(t, `{"path":"/tmp/j.log"}`, string(run.reqs[2].Config))
	assert.Nil(t, run.reqs[0].Config)
	run.mu.Unlock()
}

func TestFeedback_QueueFullDrops(t *testing.T) {
	f := NewFeedback(FeedbackConfig{Enabled: true}, nil, &recordingRunner{err: errors.New("unused")}, nil)
	for i := 0; i < feedbackQueueSize*2; i++ {
		f.Observe(analysis.Result{RepCompleted: true, Reps: uint32(i)})
	}
	assert.Len(t, f.queue, feedbackQueueSize)
}
