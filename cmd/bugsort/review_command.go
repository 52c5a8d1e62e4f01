package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"bugsort/internal/metrics"
	"bugsort/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Serve the cluster review interface over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !strings.EqualFold(cfg.Logging.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}

			m, err := metrics.New()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(m, true)
			if err != nil {
				return err
			}
			srv, err := review.New(store,
				review.WithLogger(logger),
				review.WithMetrics(m),
				review.WithSampleSize(cfg.Review.SampleSize),
				review.WithToken(cfg.Review.Token),
			)
			if err != nil {
				return err
			}

			if bind == "" {
				bind = cfg.Review.Bind
			}
			serveCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return srv.Serve(serveCtx, bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default review.bind)")
	return cmd
}
