package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/config"
	"github.com/tallermazos/invoice-gateway/internal/facturatech"
	"github.com/tallermazos/invoice-gateway/internal/model"
	"github.com/tallermazos/invoice-gateway/internal/numbering"
	"github.com/tallermazos/invoice-gateway/internal/supabase"
)

// Provider is the electronic invoicing webservice surface the handlers
// depend on.
type Provider interface {
	UploadInvoiceLayout(ctx context.Context, layout string) *model.SubmissionResult
	DocumentStatus(ctx context.Context, transactionID string) *model.SubmissionResult
	FetchResource(ctx context.Context, kind facturatech.ResourceKind, prefix, folio string) *model.SubmissionResult
}

// Store is the persistence surface the handlers depend on
type Store interface {
	CreateEInvoice(ctx context.Context, rec supabase.EInvoiceRecord) (*supabase.EInvoiceRecord, error)
	EInvoiceByTransaction(ctx context.Context, transactionID string) (*supabase.EInvoiceRecord, error)
	UpdateEInvoice(ctx context.Context, id int64, patch map[string]any) (*supabase.EInvoiceRecord, error)
	ListEInvoices(ctx context.Context, filter supabase.ListFilter) ([]supabase.EInvoiceRecord, error)
	SearchFiscalClients(ctx context.Context, term string) ([]supabase.FiscalClient, error)
	UpsertFiscalClient(ctx context.Context, c supabase.FiscalClient) (*supabase.FiscalClient, error)
	SaveQuoteInvoice(ctx context.Context, formatoKey string, total float64, pdfURL, clientName string) error
}

// PDFService converts and stores documents through the external API
type PDFService interface {
	ConvertHTML(ctx context.Context, html, filename string) (string, error)
	UploadBase64(ctx context.Context, base64Data, filename string) (string, error)
}

// Config holds server configuration plus the issuer identity baked
// into every layout.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool

	Issuer    config.IssuerConfig
	Numbering config.NumberingConfig

	// StatusDelay is how long to wait after an upload before the first
	// status poll. Shortened in tests.
	StatusDelay time.Duration
}

// Server is the HTTP API for invoice generation and electronic
// invoicing through the provider.
type Server struct {
	config    *Config
	router    *gin.Engine
	provider  Provider
	store     Store
	pdf       PDFService
	sequencer numbering.Sequencer
	log       *zap.Logger
}

// NewServer wires the API around its collaborators
func NewServer(cfg *Config, provider Provider, store Store, pdf PDFService, seq numbering.Sequencer, log *zap.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.StatusDelay <= 0 {
		cfg.StatusDelay = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:    cfg,
		router:    router,
		provider:  provider,
		store:     store,
		pdf:       pdf,
		sequencer: seq,
		log:       log,
	}
	router.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/generate-invoice", s.handleGenerateInvoice)

		ei := api.Group("/e-invoice")
		{
			ei.POST("/generate-preview", s.handleGeneratePreview)
			ei.POST("/confirm", s.handleConfirm)
			ei.GET("/status/:transactionId", s.handleStatus)
			ei.GET("/list", s.handleList)
			ei.GET("/download/:type/:prefix/:folio", s.handleDownload)
		}

		api.GET("/clientes-fiscales/buscar", s.handleSearchClients)
		api.POST("/clientes-fiscales", s.handleUpsertClient)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.log.Info("http server listening", zap.String("address", s.config.Address))
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
