package main

import (
	"contactbook/internal/adapters/httpapi"
	"contactbook/internal/blob"
	"contactbook/internal/core"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the contact API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			recorder, err := core.NewPrometheusMetricsRecorder(reg)
			if err != nil {
				return err
			}
			svc, closer, err := a.openService(ctx, core.WithMetrics(recorder))
			if err != nil {
				return err
			}
			defer closer.Close()
			store, err := blob.Open(ctx, a.cfg.Blob)
			if err != nil {
				return err
			}

			handler := httpapi.NewHandler(svc, store,
				httpapi.WithLogger(a.logger),
				httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
			)
			a.logger.Info("starting contactbook",
				zap.String("version", Version),
				zap.String("storage", a.cfg.Storage.Driver),
				zap.String("blob", string(store.Driver())),
			)
			srv := httpapi.NewServer(a.cfg.HTTP.Addr, handler.Routes(), a.logger, a.cfg.HTTP.ReadTimeout, a.cfg.HTTP.ShutdownTimeout)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	return cmd
}
