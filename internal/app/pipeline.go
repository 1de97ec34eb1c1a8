package app

import (
	"context"
	"time"
)

// runPipeline is the capture loop. Each tick reads one frame, extracts landmarks
// and analyzes them. A tick that fires while the previous frame is still being
// processed is dropped by the ticker, so a slow landmark model lowers the
// effective frame rate instead of building a backlog.
//
// While the idle gate reports a still scene, frames skip pose estimation and the
// camera drops to IdleFPS; the first frame with motion restores the full rate.
func (a *App) runPipeline(ctx context.Context) {
	activeFPS := a.camera.FPS()
	idleMode := false

	ticker := time.NewTicker(time.Second / time.Duration(activeFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				a.logger.Debug("error reading frame", "error", err)
				continue
			}

			if a.idle != nil {
				active := a.idle.Active(frame, now)
				switch {
				case !active && !idleMode:
					idleMode = true
					a.camera.SetFPS(IdleFPS)
					ticker.Reset(time.Second / IdleFPS)
					a.logger.Info("scene idle, pausing analysis")
				case active && idleMode:
					idleMode = false
					a.camera.SetFPS(activeFPS)
					ticker.Reset(time.Second / time.Duration(activeFPS))
					a.logger.Info("motion detected, resuming analysis")
				}
				if idleMode {
					frame.Close()
					continue
				}
			}

			points, err := a.Source().Landmarks(frame)
			frame.Close()
			if err != nil {
				// Source errors count as failed frames.
				a.logger.Debug("error extracting landmarks", "error", err)
				points = nil
			}

			a.Process(points, now.UnixMilli())
		}
	}
}
