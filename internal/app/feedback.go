package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/session"
)

// FeedbackConfig selects the plugins that receive live feedback.
type FeedbackConfig struct {
	Enabled bool
	// Plugins are the names of the plugins that receive every request.
	Plugins []string
	// MinInterval is the shortest gap between two correction cues.
	MinInterval time.Duration
	// PluginConfig is passed to every plugin as Request.Config.
	PluginConfig map[string]json.RawMessage
}

// runner executes one plugin request.
type runner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// feedbackQueueSize bounds pending plugin requests; older feedback is dropped
// rather than delivered late.
const feedbackQueueSize = 8

// Feedback turns analysis results into plugin requests and delivers them from a
// single worker goroutine.
type Feedback struct {
	cfg    FeedbackConfig
	mgr    *plugin.Manager
	exec   runner
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastCue  string
	lastSent time.Time

	queue chan plugin.Request
}

// NewFeedback creates a dispatcher. Call Run to start delivery.
func NewFeedback(cfg FeedbackConfig, mgr *plugin.Manager, exec runner, logger *slog.Logger) *Feedback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feedback{
		cfg:    cfg,
		mgr:    mgr,
		exec:   exec,
		logger: logger,
		now:    time.Now,
		queue:  make(chan plugin.Request, feedbackQueueSize),
	}
}

// Observe queues the feedback due for one frame result: a rep announcement when
// a repetition completes, and the top correction when it changes and the cue
// interval has passed.
func (f *Feedback) Observe(r analysis.Result) {
	for _, req := range f.decide(r) {
		f.enqueue(req)
	}
}

func (f *Feedback) decide(r analysis.Result) []plugin.Request {
	if !f.cfg.Enabled {
		return nil
	}

	var out []plugin.Request
	if r.RepCompleted {
		out = append(out, plugin.Request{
			Action:   plugin.ActionRep,
			Exercise: string(r.Exercise),
			Reps:     r.Reps,
			Grade:    string(r.Grade),
		})
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(r.Corrections) == 0 {
		f.lastCue = ""
		return out
	}
	top := r.Corrections[0]
	now := f.now()
	if top == f.lastCue || now.Sub(f.lastSent) < f.cfg.MinInterval {
		return out
	}
	f.lastCue = top
	f.lastSent = now

	return append(out, plugin.Request{
		Action:   plugin.ActionCue,
		Exercise: string(r.Exercise),
		Text:     top,
		Reps:     r.Reps,
		Grade:    string(r.Grade),
	})
}

// Summary queues the end-of-session announcement for rec.
func (f *Feedback) Summary(rec *session.Record) {
	if !f.cfg.Enabled || rec.Reps == 0 {
		return
	}
	f.enqueue(plugin.Request{
		Action:   plugin.ActionSummary,
		Exercise: string(rec.Exercise),
		Reps:     rec.Reps,
		Grade:    string(rec.BestGrade),
	})
}

func (f *Feedback) enqueue(req plugin.Request) {
	select {
	case f.queue <- req:
	default:
		f.logger.Debug("feedback queue full, dropping request", "action", req.Action)
	}
}

// Run delivers queued requests until ctx is done.
func (f *Feedback) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-f.queue:
			f.deliver(ctx, req)
		}
	}
}

func (f *Feedback) deliver(ctx context.Context, req plugin.Request) {
	for _, name := range f.cfg.Plugins {
		p, err := f.mgr.Get(name)
		if err != nil {
			f.logger.Debug("feedback plugin unavailable", "plugin", name, "error", err)
			continue
		}
		if !p.Manifest.Supports(req.Action) {
			continue
		}

		r := req
		r.Config = f.cfg.PluginConfig[name]
		resp, err := f.exec.Execute(ctx, p, &r)
		switch {
		case err != nil:
			f.logger.Warn("feedback plugin failed", "plugin", name, "action", req.Action, "error", err)
		case !resp.Success:
			f.logger.Warn("feedback plugin returned error", "plugin", name, "action", req.Action, "error", resp.Error)
		}
	}
}
