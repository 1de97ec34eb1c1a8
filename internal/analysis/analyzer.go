package analysis

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

// Analyzer turns a stream of landmark frames from one workout session into
// per-frame form analysis. It is owned by a single session and is not safe for
// concurrent use; hand Result.Clone() to other goroutines.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger

	def      exercise.Definition
	smoother *Smoother
	history  *History
	weights  *Weights
	reps     *exercise.RepCounter
	faults   *FaultController

	confidence []float64 // prior instantaneous confidences, oldest first
	last       *Result

	analyzed uint64
	failed   uint64
}

// New creates an Analyzer for cfg.Exercise. Zero config fields take their defaults.
func New(cfg Config, logger *slog.Logger) (*Analyzer, error) {
	cfg = cfg.withDefaults()
	def, err := exercise.Lookup(cfg.Exercise)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyzer{
		cfg:        cfg,
		logger:     logger,
		def:        def,
		smoother:   NewSmoother(cfg.SmoothingWindow, cfg.SmoothingConfidence),
		history:    NewHistory(cfg.HistorySize),
		weights:    NewWeights(cfg),
		reps:       exercise.NewRepCounter(def.Rep.Low, def.Rep.High),
		faults:     NewFaultController(cfg.FaultThreshold),
		confidence: make([]float64, 0, cfg.HistorySize),
	}, nil
}

// Analyze validates a raw landmark array and analyzes it. It never fails: invalid
// input yields a degraded result.
func (a *Analyzer) Analyze(raw json.RawMessage, timestamp int64) Result {
	f, err := pose.Validate(raw, timestamp)
	if err != nil {
		return a.fail(err, timestamp)
	}
	return a.analyze(f)
}

// AnalyzePoints analyzes typed landmarks, such as those from a landmark source.
func (a *Analyzer) AnalyzePoints(points []pose.Landmark, timestamp int64) Result {
	f, err := pose.ValidatePoints(points, timestamp)
	if err != nil {
		return a.fail(err, timestamp)
	}
	return a.analyze(f)
}

// AnalyzeFrame analyzes a frame that is already fixed-size.
func (a *Analyzer) AnalyzeFrame(f pose.Frame) Result {
	return a.AnalyzePoints(f.Points[:], f.Timestamp)
}

func (a *Analyzer) analyze(f pose.Frame) Result {
	res, upd, err := a.evaluate(f)
	if err != nil {
		return a.fail(err, f.Timestamp)
	}
	a.apply(upd)

	a.analyzed++
	if a.faults.Success() {
		a.logger.Info("analysis recovered from fallback", "exercise", a.def.Type)
	}
	stored := res.Clone()
	a.last = &stored
	return res
}

// frameUpdate is the session state produced by one successful frame. It is only
// applied once the whole frame has been analyzed.
type frameUpdate struct {
	raw        pose.Frame
	smoothed   pose.Frame
	groups     []GroupScore
	reps       exercise.State
	confidence float64
}

// evaluate runs the full pipeline without mutating session state.
func (a *Analyzer) evaluate(f pose.Frame) (res Result, upd frameUpdate, err error) {
	stage := "smoothing"
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingFault{Stage: stage, Cause: r}
		}
	}()

	smoothed, tracking := a.smoother.Preview(f)
	recent := a.history.With(smoothed)

	stage = "consistency"
	groups := scoreGroups(&a.def, recent, a.weights, a.cfg)
	consistency := overallConsistency(groups)

	stage = "stability"
	stab := stability(a.def.Groups, groups, recent, a.cfg)
	sym := symmetry(&smoothed, a.cfg)
	sync := synchrony(a.def.Groups, recent, a.cfg)
	coord := coordination(sym, sync)

	stage = "repetition"
	reps, completed := a.reps.State(), false
	if angle, ok := a.def.Rep.Measure(&smoothed, a.cfg.JointConfidence); ok {
		reps, completed = a.reps.Next(angle)
	}

	stage = "grading"
	instant := smoothed.MeanConfidence()
	score := formScore(consistency, stab, coord)
	res = Result{
		Timestamp:    f.Timestamp,
		Exercise:     a.def.Type,
		Consistency:  consistency,
		Groups:       groups,
		Stability:    stab,
		Coordination: coord,
		Symmetry:     sym,
		Synchrony:    sync,
		Confidence:   blendConfidence(instant, a.confidence),
		Tracking:     tracking,
		FormScore:    score,
		Grade:        gradeFor(score),
		Corrections:  corrections(&a.def, groups, a.cfg.correctionThreshold(), a.cfg.MaxCorrections),
		Reps:         reps.Count,
		Phase:        reps.Phase,
		RepCompleted: completed,
	}
	if err := checkFinite(&res); err != nil {
		return Result{}, frameUpdate{}, err
	}

	return res, frameUpdate{
		raw:        f,
		smoothed:   smoothed,
		groups:     groups,
		reps:       reps,
		confidence: instant,
	}, nil
}

func (a *Analyzer) apply(u frameUpdate) {
	a.smoother.Push(u.raw)
	a.history.Push(u.smoothed)
	a.weights.Update(a.def.Type, u.groups)
	a.reps.Set(u.reps)

	if len(a.confidence) == a.cfg.HistorySize {
		copy(a.confidence, a.confidence[1:])
		a.confidence = a.confidence[:len(a.confidence)-1]
	}
	a.confidence = append(a.confidence, u.confidence)
}

// fail records a failed frame and picks the degraded result to return.
func (a *Analyzer) fail(err error, timestamp int64) Result {
	a.failed++
	if a.faults.Failure() {
		a.logger.Warn("analysis fallback activated",
			"exercise", a.def.Type,
			"consecutive_errors", a.faults.State().ConsecutiveErrors,
			"error", err)
	} else {
		a.logger.Debug("frame analysis failed", "error", err)
	}

	if a.faults.State().FallbackActive || a.last == nil {
		return fallbackResult(a.def.Type, timestamp, a.reps.State())
	}
	r := a.last.Clone()
	r.Timestamp = timestamp
	r.RepCompleted = false
	r.Degraded = true
	return r
}

// SetExercise switches the active exercise. Rep progress and fault tracking are
// reset; History and adaptive weights are kept. Selecting the current exercise
// again is a no-op.
func (a *Analyzer) SetExercise(t exercise.Type) error {
	if t == a.def.Type {
		return nil
	}
	def, err := exercise.Lookup(t)
	if err != nil {
		return err
	}

	prev := a.def.Type
	a.def = def
	a.reps = exercise.NewRepCounter(def.Rep.Low, def.Rep.High)
	a.faults.Reset()
	a.last = nil
	a.logger.Info("exercise changed", "from", prev, "to", t)
	return nil
}

// Reset clears History, smoothing, rep progress and fault state for a new session.
// Adaptive weights are kept.
func (a *Analyzer) Reset() {
	a.smoother.Reset()
	a.history.Reset()
	a.reps.Reset()
	a.faults.Reset()
	a.confidence = a.confidence[:0]
	a.last = nil
	a.logger.Debug("analyzer reset", "exercise", a.def.Type)
}

// Stats returns a diagnostic snapshot.
func (a *Analyzer) Stats() Stats {
	fs := a.faults.State()
	rs := a.reps.State()
	return Stats{
		Exercise:          a.def.Type,
		FallbackActive:    fs.FallbackActive,
		ConsecutiveErrors: fs.ConsecutiveErrors,
		HistoryDepth:      a.history.Len(),
		HistoryCapacity:   a.history.Cap(),
		SmoothingDepth:    a.smoother.Len(),
		Reps:              rs.Count,
		Phase:             rs.Phase,
		FramesAnalyzed:    a.analyzed,
		FramesFailed:      a.failed,
	}
}

// Exercise returns the active exercise.
func (a *Analyzer) Exercise() exercise.Type {
	return a.def.Type
}

// Weights returns a copy of the adaptive weight table.
func (a *Analyzer) Weights() map[WeightKey]float64 {
	return a.weights.Snapshot()
}

func checkFinite(r *Result) error {
	vals := []float64{r.Consistency, r.Stability, r.Coordination, r.Confidence, r.Tracking, r.FormScore}
	for _, g := range r.Groups {
		vals = append(vals, g.Score)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ProcessingFault{Stage: "grading", Cause: "non-finite score"}
		}
	}
	return nil
}
