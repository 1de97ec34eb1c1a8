package main

import (
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcheck/internal/tray"
)

// trayRefresh is how often the tray status line follows the live result.
const trayRefresh = time.Second

func newTrayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tray",
		Short: "Run the camera session with a system tray menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			svc, err := startService(cfg, logger, true)
			if err != nil {
				return err
			}
			defer svc.close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			live := svc.app
			t := tray.New(live.Exercise())
			t.OnToggle(live.SetEnabled)
			t.OnExercise(live.SetExercise)
			t.OnReset(live.Reset)
			t.OnDashboard(func() {
				openBrowser(dashboardURL(cfg.Server.Bind), logger)
			})
			t.OnQuit(stop)

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- svc.server.ListenAndServe(runCtx, cfg.Server.Bind)
				t.Quit()
			}()
			go func() {
				ticker := time.NewTicker(trayRefresh)
				defer ticker.Stop()
				for {
					select {
					case <-runCtx.Done():
						return
					case <-ticker.C:
						if res, ok := live.Latest(); ok {
							t.SetResult(res)
						}
					}
				}
			}()

			logger.Info("listening", "addr", cfg.Server.Bind, "config", ctx.configPath)
			// The tray owns the main goroutine until Quit.
			t.Run()
			stop()
			return <-serveErr
		},
	}
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func openBrowser(url string, logger *slog.Logger) {
	var name string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
		args = []string{url}
	case "linux":
		name = "xdg-open"
		args = []string{url}
	case "windows":
		name = "cmd"
		args = []string{"/c", "start", url}
	default:
		logger.Warn("cannot open browser on this platform", "os", runtime.GOOS, "url", url)
		return
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		logger.Warn("failed to open browser", "url", url, "error", err)
	}
}
