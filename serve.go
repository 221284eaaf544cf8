package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minios-linux/nameproxy/logging"
	"github.com/minios-linux/nameproxy/server"
)

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the proxy engine over HTTP.

Endpoints:
  GET  /healthz
  POST /api/v1/translate                 {"context": "...", "text": "...", "use_proxies": true}
  GET  /api/v1/contexts/{context}/lookup?text=...

The engine is configured from .nameproxy.yaml and flags like the other
commands. Server settings come from the environment:
  NAMEPROXY_HTTP_ADDR        listen address (default 127.0.0.1:8080)
  NAMEPROXY_CORS_ORIGINS     comma-separated allowed origins
  NAMEPROXY_READ_TIMEOUT     request read timeout (default 15s)
  NAMEPROXY_WRITE_TIMEOUT    response write timeout (default 120s)
  NAMEPROXY_MAX_BODY_BYTES   translate body limit (default 1 MiB)

Logs are written to stderr as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := server.LoadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				srvCfg.Addr = addr
			}

			a, err := newApp(cmd, appOptions{logFormat: logging.FormatJSON})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.log.Info("starting server",
				zap.String("addr", srvCfg.Addr),
				zap.Bool("translator", a.cfg.Provider.ID != ""),
				zap.String("target_lang", a.cfg.TargetLang),
			)
			return server.New(srvCfg, a.engine, a.source, a.log).ListenAndServe(ctx)
		},
	}

	addEngineFlags(cmd)
	addProviderFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides NAMEPROXY_HTTP_ADDR)")

	return cmd
}
