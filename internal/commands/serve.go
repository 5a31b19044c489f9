package commands

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codespectre/internal/logging"
	"github.com/ppiankov/codespectre/internal/server"
)

const defaultAddr = ":8000"

var serveFlags struct {
	engineFlags
	addr        string
	allowLocal  bool
	scanTimeout time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Start an HTTP server with the endpoints
  POST /analyze   {"code": "...", "language": "python"}
  POST /scan      {"repository_url": "...", "branch": "main"}
  POST /report?format=json|text|html|pdf|sarif   (either body)
  GET  /ping
  GET  /version
Every route is also available under /api/.`,
	RunE: runServe,
}

func init() {
	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", defaultAddr, "Listen address")
	serveCmd.Flags().BoolVar(&serveFlags.allowLocal, "allow-local", false, "Allow /scan of directories on the server host")
	serveCmd.Flags().DurationVar(&serveFlags.scanTimeout, "scan-timeout", defaultScanTimeout, "Timeout for one /scan request")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	serveFlags.applyConfig(cfg)
	if serveFlags.addr == defaultAddr && cfg.Server.Addr != "" {
		serveFlags.addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, serveFlags.engineFlags, cfg)
	if err != nil {
		return err
	}

	srv := server.New(engine, server.Config{
		Tool:        "codespectre",
		Version:     versionString(),
		AllowLocal:  serveFlags.allowLocal,
		ScanTimeout: serveFlags.scanTimeout,
	}, logging.L())
	return srv.ListenAndServe(ctx, serveFlags.addr)
}
