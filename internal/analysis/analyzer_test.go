package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

func newTestAnalyzer(t *testing.T, ex exercise.Type) *Analyzer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Exercise = ex
	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return a
}

func rawLandmarks(t *testing.T, f pose.Frame) json.RawMessage {
	t.Helper()
	type point struct {
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Visibility float64 `json:"visibility"`
	}
	pts := make([]point, len(f.Points))
	for i, p := range f.Points {
		pts[i] = point{X: p.X, Y: p.Y, Visibility: p.Confidence}
	}
	b, err := json.Marshal(pts)
	require.NoError(t, err)
	return b
}

// squatRep returns one full repetition: standing, descending, holding the bottom
// and returning to standing.
func squatRep(start int64) []pose.Frame {
	stand, bottom := pose.StandingPose(), pose.SquatBottomPose()
	var out []pose.Frame
	add := func(f pose.Frame) {
		f.Timestamp = start + int64(len(out))*33
		out = append(out, f)
	}
	for i := 0; i < 8; i++ {
		add(stand)
	}
	for i := 1; i <= 8; i++ {
		add(pose.Blend(stand, bottom, float64(i)/8))
	}
	for i := 0; i < 8; i++ {
		add(bottom)
	}
	for i := 1; i <= 8; i++ {
		add(pose.Blend(bottom, stand, float64(i)/8))
	}
	for i := 0; i < 8; i++ {
		add(stand)
	}
	return out
}

func jitter(base pose.Frame, r *rand.Rand, amp float64, ts int64) pose.Frame {
	f := base
	f.Timestamp = ts
	for i := range f.Points {
		f.Points[i].X += (r.Float64()*2 - 1) * amp
		f.Points[i].Y += (r.Float64()*2 - 1) * amp
		f.Points[i].Confidence = 0.2 + r.Float64()*0.8
	}
	return f
}

func assertUnit(t *testing.T, name string, v float64) {
	t.Helper()
	assert.GreaterOrEqual(t, v, 0.0, name)
	assert.LessOrEqual(t, v, 1.0, name)
}

func TestNew(t *testing.T) {
	t.Run("unknown exercise", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Exercise = "burpee"
		_, err := New(cfg, nil)
		assert.ErrorIs(t, err, exercise.ErrUnknownExercise)
	})

	t.Run("explicit zeros are kept", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TemporalBlend = 0
		cfg.JointConfidence = 0
		cfg.CorrectionThreshold = 0
		a, err := New(cfg, nil)
		require.NoError(t, err)
		assert.Zero(t, a.cfg.TemporalBlend)
		assert.Zero(t, a.cfg.JointConfidence)
		assert.Zero(t, a.cfg.CorrectionThreshold)
		assert.Equal(t, 10, a.cfg.HistorySize)

		res := a.AnalyzeFrame(pose.StandingPose())
		for _, g := range res.Groups {
			assert.Equal(t, g.Spatial, g.Score, "zero blend scores spatial only: %s", g.Name)
		}
		assert.Empty(t, res.Corrections)
	})

	t.Run("meaningless zeros take defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HistorySize = 0
		cfg.DisplacementScale = 0
		a, err := New(cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, a.cfg.HistorySize)
		assert.Equal(t, 0.1, a.cfg.DisplacementScale)
	})

	t.Run("zero config takes defaults", func(t *testing.T) {
		a, err := New(Config{Exercise: exercise.Squat}, nil)
		require.NoError(t, err)
		st := a.Stats()
		assert.Equal(t, 10, st.HistoryCapacity)
		assert.Equal(t, exercise.PhaseUp, st.Phase)
		assert.False(t, st.FallbackActive)
	})
}

func TestAnalyzer_ScoresAreBounded(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)
	r := rand.New(rand.NewPCG(7, 11))
	stand, bottom := pose.StandingPose(), pose.SquatBottomPose()
	grades := map[Grade]bool{GradeS: true, GradeA: true, GradeB: true, GradeC: true, GradeD: true}

	for i := 0; i < 300; i++ {
		base := pose.Blend(stand, bottom, r.Float64())
		res := a.AnalyzeFrame(jitter(base, r, 0.04, int64(i)*33))

		assertUnit(t, "consistency", res.Consistency)
		assertUnit(t, "stability", res.Stability)
		assertUnit(t, "coordination", res.Coordination)
		assertUnit(t, "confidence", res.Confidence)
		assertUnit(t, "form score", res.FormScore)
		for _, g := range res.Groups {
			assertUnit(t, g.Name, g.Score)
		}
		assert.True(t, grades[res.Grade], "grade %q", res.Grade)
		assert.LessOrEqual(t, len(res.Corrections), 3)
		for _, w := range a.Weights() {
			require.GreaterOrEqual(t, w, 0.1)
			require.LessOrEqual(t, w, 2.0)
		}
	}
}

func TestAnalyzer_StaticPose(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)

	first := a.AnalyzeFrame(pose.StandingPose())
	assert.Equal(t, defaultStability, first.Stability, "short history uses default")
	for _, g := range first.Groups {
		assert.Equal(t, defaultTemporal, g.Temporal, g.Name)
	}

	var res Result
	for i := 1; i <= 15; i++ {
		f := pose.StandingPose()
		f.Timestamp = int64(i) * 33
		res = a.AnalyzeFrame(f)
	}

	assert.False(t, res.Degraded)
	assert.InDelta(t, 1.0, res.Stability, 1e-9)
	assert.InDelta(t, 1.0, res.Tracking, 1e-9)
	for _, g := range res.Groups {
		assert.True(t, g.Sufficient, g.Name)
		assert.InDelta(t, 1.0, g.Temporal, 1e-9, g.Name)
	}
	assert.Equal(t, 10, a.Stats().HistoryDepth)
	assert.Equal(t, 5, a.Stats().SmoothingDepth)
}

func TestAnalyzer_CountsRepetitions(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)

	var completed int
	var last Result
	for _, f := range squatRep(0) {
		last = a.AnalyzeFrame(f)
		if last.RepCompleted {
			completed++
		}
	}

	assert.Equal(t, 1, completed)
	assert.Equal(t, uint32(1), last.Reps)
	assert.Equal(t, exercise.PhaseUp, last.Phase)

	for _, f := range squatRep(10_000) {
		last = a.AnalyzeFrame(f)
	}
	assert.Equal(t, uint32(2), last.Reps)
}

func TestAnalyzer_Fallback(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)

	for i := 0; i < 4; i++ {
		a.Analyze(rawLandmarks(t, pose.StandingPose()), int64(i))
	}
	good := a.Stats()

	bad := json.RawMessage(`[{"x":0.5,"y":0.5}]`)

	res := a.Analyze(bad, 100)
	assert.True(t, res.Degraded)
	assert.NotEqual(t, []string{FallbackCorrection}, res.Corrections, "last good result is reused")
	assert.Equal(t, int64(100), res.Timestamp)

	a.Analyze(bad, 101)
	st := a.Stats()
	assert.Equal(t, uint32(2), st.ConsecutiveErrors)
	assert.False(t, st.FallbackActive)

	res = a.Analyze(bad, 102)
	st = a.Stats()
	assert.True(t, st.FallbackActive)
	assert.Equal(t, GradeC, res.Grade)
	assert.Equal(t, fallbackScore, res.FormScore)
	assert.Equal(t, fallbackScore, res.Consistency)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, []string{FallbackCorrection}, res.Corrections)
	assert.Equal(t, uint64(3), st.FramesFailed)

	// failed frames leave session state untouched
	assert.Equal(t, good.HistoryDepth, st.HistoryDepth)
	assert.Equal(t, good.SmoothingDepth, st.SmoothingDepth)

	res = a.Analyze(rawLandmarks(t, pose.StandingPose()), 103)
	assert.False(t, res.Degraded)
	st = a.Stats()
	assert.False(t, st.FallbackActive)
	assert.Zero(t, st.ConsecutiveErrors)
	assert.Equal(t, good.HistoryDepth+1, st.HistoryDepth)
}

func TestAnalyzer_FailureWithoutHistory(t *testing.T) {
	a := newTestAnalyzer(t, exercise.PushUp)

	res := a.Analyze(json.RawMessage(`"not landmarks"`), 5)
	assert.True(t, res.Degraded)
	assert.Equal(t, exercise.PushUp, res.Exercise)
	assert.Equal(t, GradeC, res.Grade)
	assert.False(t, a.Stats().FallbackActive)
}

func TestAnalyzer_RecoversFromPanics(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)
	a.AnalyzeFrame(pose.StandingPose())

	a.def.Groups = append(a.def.Groups, exercise.JointGroup{Name: "broken", Indices: []int{40, 41}, Weight: 1})
	_, _, err := a.evaluate(pose.StandingPose())
	var fault *ProcessingFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "consistency", fault.Stage)

	before := a.Stats()
	res := a.AnalyzeFrame(pose.StandingPose())
	assert.True(t, res.Degraded)
	after := a.Stats()
	assert.Equal(t, before.HistoryDepth, after.HistoryDepth)
	assert.Equal(t, before.FramesFailed+1, after.FramesFailed)
}

func TestAnalyzer_LowConfidenceIsNeutral(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)

	res := a.AnalyzeFrame(uniformFrame(0.5, 0.5, 0.2, 0))
	assert.False(t, res.Degraded)
	for _, g := range res.Groups {
		assert.False(t, g.Sufficient, g.Name)
		assert.Equal(t, 0.5, g.Score, g.Name)
	}
	assert.InDelta(t, 0.5, res.Consistency, 1e-9)
	assert.Zero(t, res.Tracking, "no landmark clears the smoothing threshold")
	assert.Empty(t, res.Corrections)
	assert.Empty(t, a.Weights(), "insufficient groups do not adapt")
}

func TestAnalyzer_Reset(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)
	r := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 20; i++ {
		a.AnalyzeFrame(jitter(pose.StandingPose(), r, 0.01, int64(i)))
	}
	weights := a.Weights()
	require.NotEmpty(t, weights)

	a.Reset()

	st := a.Stats()
	assert.Zero(t, st.HistoryDepth)
	assert.Zero(t, st.SmoothingDepth)
	assert.Zero(t, st.Reps)
	assert.Equal(t, exercise.PhaseUp, st.Phase)
	assert.Equal(t, weights, a.Weights())

	res := a.AnalyzeFrame(pose.StandingPose())
	assert.Equal(t, defaultStability, res.Stability)
}

func TestAnalyzer_SetExercise(t *testing.T) {
	a := newTestAnalyzer(t, exercise.Squat)
	for _, f := range squatRep(0) {
		a.AnalyzeFrame(f)
	}
	before := a.Stats()
	require.Equal(t, uint32(1), before.Reps)
	squatWeights := a.Weights()

	t.Run("same exercise is a no-op", func(t *testing.T) {
		require.NoError(t, a.SetExercise(exercise.Squat))
		assert.Equal(t, uint32(1), a.Stats().Reps)
	})

	t.Run("unknown exercise is rejected", func(t *testing.T) {
		err := a.SetExercise("burpee")
		assert.ErrorIs(t, err, exercise.ErrUnknownExercise)
		assert.Equal(t, exercise.Squat, a.Exercise())
	})

	t.Run("switch resets rep state only", func(t *testing.T) {
		require.NoError(t, a.SetExercise(exercise.Lunge))
		st := a.Stats()
		assert.Equal(t, exercise.Lunge, st.Exercise)
		assert.Zero(t, st.Reps)
		assert.Equal(t, exercise.PhaseUp, st.Phase)
		assert.Equal(t, before.HistoryDepth, st.HistoryDepth)
		assert.Equal(t, squatWeights, a.Weights())

		res := a.AnalyzeFrame(pose.StandingPose())
		assert.Equal(t, exercise.Lunge, res.Exercise)
		for k, v := range squatWeights {
			assert.Equal(t, v, a.Weights()[k], "lunge frames must not move squat weights")
		}
	})
}
