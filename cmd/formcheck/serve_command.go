package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var noCamera bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis server and the camera session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Server.Bind = b
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			svc, err := startService(cfg, logger, cfg.Camera.Enabled && !noCamera)
			if err != nil {
				return err
			}
			defer svc.close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("listening", "addr", cfg.Server.Bind, "config", ctx.configPath)
			return svc.server.ListenAndServe(runCtx, cfg.Server.Bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().BoolVar(&noCamera, "no-camera", false, "Serve browser sessions only")
	return cmd
}
