package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallermazos/invoice-gateway/internal/numbering"
	"github.com/tallermazos/invoice-gateway/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the invoicing HTTP API.

Endpoints:
  - POST /api/generate-invoice                        - Quote HTML to stored PDF
  - POST /api/e-invoice/generate-preview              - Submit invoice, get preview
  - POST /api/e-invoice/confirm                       - Finalize a submission
  - GET  /api/e-invoice/status/:transactionId         - Submission status
  - GET  /api/e-invoice/list                          - List submissions
  - GET  /api/e-invoice/download/:type/:prefix/:folio - Download pdf, xml or qr
  - GET  /api/clientes-fiscales/buscar                - Search fiscal clients
  - POST /api/clientes-fiscales                       - Create or update a client
  - GET  /health                                      - Health check`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	address := cfg.Server.Address
	if serverAddr != "" {
		address = serverAddr
	}

	store := newStore(cfg, log)
	sequencer := numbering.NewStoreSequencer(store, cfg.Numbering.RangeFrom, cfg.Numbering.RangeTo)

	srv := server.NewServer(&server.Config{
		Address:      address,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug || cfg.Server.Debug,
		Issuer:       cfg.Issuer,
		Numbering:    cfg.Numbering,
	}, newProvider(cfg, log), store, newPDFService(cfg, log), sequencer, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	return srv.Run()
}
