package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/config"
	"github.com/tallermazos/invoice-gateway/internal/facturatech"
	"github.com/tallermazos/invoice-gateway/internal/logging"
	"github.com/tallermazos/invoice-gateway/internal/pdfapi"
	"github.com/tallermazos/invoice-gateway/internal/supabase"
)

var (
	version = "1.0.0"

	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "invoice-gateway",
	Short: "Electronic invoicing gateway for the workshop backend",
	Long: `Invoice Gateway submits workshop invoices to the Facturatech
webservice for DIAN electronic invoicing, and generates quote PDFs
through the external conversion service.

Examples:
  # Start the HTTP API
  invoice-gateway serve

  # Submit an invoice from a JSON file
  invoice-gateway submit factura.json

  # Check a submission
  invoice-gateway status 78901

  # Download the signed PDF
  invoice-gateway fetch pdf SETT 42`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// bootstrap loads configuration and builds the logger every command
// starts from.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Logger.Level = "debug"
	}
	log, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newProvider(cfg *config.Config, log *zap.Logger) *facturatech.Client {
	return facturatech.NewClient(facturatech.Config{
		Endpoint:     cfg.Facturatech.Endpoint(),
		Username:     cfg.Facturatech.Username,
		PasswordHash: cfg.Facturatech.PasswordHash,
		ProxyURL:     cfg.Facturatech.ProxyURL,
		Timeout:      cfg.Facturatech.Timeout,
	}, log)
}

func newStore(cfg *config.Config, log *zap.Logger) *supabase.Store {
	client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Timeout, log)
	return supabase.NewStore(client, log)
}

func newPDFService(cfg *config.Config, log *zap.Logger) *pdfapi.Client {
	return pdfapi.NewClient(cfg.PDFService.BaseURL, cfg.PDFService.Timeout, log)
}
