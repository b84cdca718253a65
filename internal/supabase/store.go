package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

// Estados of an electronic invoice record
const (
	EstadoPreview    = "PREVIEW"
	EstadoProcesando = "PROCESANDO"
	EstadoValidada   = "VALIDADA"
)

// EInvoiceRecord mirrors one row of facturas_electronicas
type EInvoiceRecord struct {
	ID              int64   `json:"id,omitempty"`
	IDFormato       string  `json:"id_formato,omitempty"`
	TransactionID   string  `json:"transaction_id"`
	Prefijo         string  `json:"prefijo"`
	NumeroFactura   string  `json:"numero_factura"`
	Estado          string  `json:"estado"`
	CUFE            string  `json:"cufe,omitempty"`
	PDFURL          string  `json:"pdf_url,omitempty"`
	AdqTipoDoc      string  `json:"adq_tipo_doc,omitempty"`
	AdqNumeroDoc    string  `json:"adq_numero_doc,omitempty"`
	AdqRazonSocial  string  `json:"adq_razon_social,omitempty"`
	BaseGravable    float64 `json:"base_gravable"`
	IVA             float64 `json:"iva"`
	Total           float64 `json:"total"`
	ResponseCode    string  `json:"response_code,omitempty"`
	ResponseMessage string  `json:"response_message,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// FiscalClient mirrors one row of clientes_fiscales
type FiscalClient struct {
	ID              int64  `json:"id,omitempty"`
	TipoDocumento   string `json:"tipo_documento"`
	NumeroDocumento string `json:"numero_documento"`
	RazonSocial     string `json:"razon_social"`
	Direccion       string `json:"direccion,omitempty"`
	Ciudad          string `json:"ciudad,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	Email           string `json:"email,omitempty"`
	TipoPersona     string `json:"tipo_persona,omitempty"`
}

// QuoteInvoice mirrors one row of facturas (workshop quote invoices)
type QuoteInvoice struct {
	IDFormato     string  `json:"id_formato"`
	PrecioFactura float64 `json:"precio_factura"`
	Debe          float64 `json:"debe,omitempty"`
	FacturaPDF    string  `json:"factura_pdf"`
	Estado        string  `json:"estado,omitempty"`
	Cliente       string  `json:"cliente,omitempty"`
}

// ListFilter narrows the invoice listing
type ListFilter struct {
	Estado   string
	Busqueda string
	Limit    int
}

// Store persists invoice state through the PostgREST client
type Store struct {
	client *Client
	log    *zap.Logger
}

// NewStore wraps a PostgREST client
func NewStore(client *Client, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, log: log}
}

// CreateEInvoice inserts a preview record and returns the stored row
func (s *Store) CreateEInvoice(ctx context.Context, rec EInvoiceRecord) (*EInvoiceRecord, error) {
	var rows []EInvoiceRecord
	if err := s.client.insertRow(ctx, "facturas_electronicas", rec, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &rec, nil
	}
	return &rows[0], nil
}

// EInvoiceByTransaction loads one record by its provider transaction id
func (s *Store) EInvoiceByTransaction(ctx context.Context, transactionID string) (*EInvoiceRecord, error) {
	query := url.Values{
		"transaction_id": {"eq." + transactionID},
		"limit":          {"1"},
	}
	var rows []EInvoiceRecord
	if err := s.client.selectRows(ctx, "facturas_electronicas", query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.NewRequestError("supabase", "select", 404,
			fmt.Sprintf("no invoice for transaction %s", transactionID), nil)
	}
	return &rows[0], nil
}

// UpdateEInvoice patches the record with the given id
func (s *Store) UpdateEInvoice(ctx context.Context, id int64, patch map[string]any) (*EInvoiceRecord, error) {
	query := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
	var rows []EInvoiceRecord
	if err := s.client.updateRows(ctx, "facturas_electronicas", query, patch, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.NewRequestError("supabase", "update", 404,
			fmt.Sprintf("invoice %d not found", id), nil)
	}
	return &rows[0], nil
}

// ListEInvoices returns recent records, optionally filtered by estado
// and a free-text search over acquirer name, invoice number and
// acquirer document.
func (s *Store) ListEInvoices(ctx context.Context, filter ListFilter) ([]EInvoiceRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := url.Values{
		"order": {"created_at.desc"},
		"limit": {strconv.Itoa(limit)},
	}
	if filter.Estado != "" {
		query.Set("estado", "eq."+filter.Estado)
	}
	if filter.Busqueda != "" {
		pattern := "*" + filter.Busqueda + "*"
		query.Set("or", fmt.Sprintf("(adq_razon_social.ilike.%s,numero_factura.ilike.%s,adq_numero_doc.ilike.%s)",
			pattern, pattern, pattern))
	}

	var rows []EInvoiceRecord
	if err := s.client.selectRows(ctx, "facturas_electronicas", query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LastSequence returns the highest numero_factura stored for the
// prefix, or 0 when none exists yet.
func (s *Store) LastSequence(ctx context.Context, prefix string) (int64, error) {
	query := url.Values{
		"select":  {"numero_factura"},
		"prefijo": {"eq." + prefix},
		"order":   {"numero_factura.desc"},
		"limit":   {"1"},
	}
	var rows []struct {
		NumeroFactura string `json:"numero_factura"`
	}
	if err := s.client.selectRows(ctx, "facturas_electronicas", query, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(rows[0].NumeroFactura, 10, 64)
	if err != nil {
		return 0, model.NewRequestError("supabase", "select", 0,
			fmt.Sprintf("stored numero_factura %q is not numeric", rows[0].NumeroFactura), err)
	}
	return n, nil
}

// SearchFiscalClients matches clients by document number or legal name
func (s *Store) SearchFiscalClients(ctx context.Context, term string) ([]FiscalClient, error) {
	if len(term) < 2 {
		return []FiscalClient{}, nil
	}
	pattern := "*" + term + "*"
	query := url.Values{
		"or":    {fmt.Sprintf("(numero_documento.ilike.%s,razon_social.ilike.%s)", pattern, pattern)},
		"limit": {"20"},
	}
	var rows []FiscalClient
	if err := s.client.selectRows(ctx, "clientes_fiscales", query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertFiscalClient creates or updates a client keyed by document number
func (s *Store) UpsertFiscalClient(ctx context.Context, c FiscalClient) (*FiscalClient, error) {
	var rows []FiscalClient
	if err := s.client.upsertRow(ctx, "clientes_fiscales", "numero_documento", c, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &c, nil
	}
	return &rows[0], nil
}

// SaveQuoteInvoice creates or updates the workshop quote invoice for a
// formato and stamps the document URL on the formato row as well.
func (s *Store) SaveQuoteInvoice(ctx context.Context, formatoKey string, total float64, pdfURL, clientName string) error {
	query := url.Values{
		"select":     {"id_formato"},
		"id_formato": {"eq." + formatoKey},
		"limit":      {"1"},
	}
	var existing []struct {
		IDFormato string `json:"id_formato"`
	}
	if err := s.client.selectRows(ctx, "facturas", query, &existing); err != nil {
		return err
	}

	if len(existing) > 0 {
		patch := map[string]any{
			"precio_factura": total,
			"factura_pdf":    pdfURL,
		}
		upd := url.Values{"id_formato": {"eq." + formatoKey}}
		if err := s.client.updateRows(ctx, "facturas", upd, patch, nil); err != nil {
			return err
		}
	} else {
		row := QuoteInvoice{
			IDFormato:     formatoKey,
			PrecioFactura: total,
			Debe:          total,
			FacturaPDF:    pdfURL,
			Estado:        "PENDIENTE",
			Cliente:       clientName,
		}
		if err := s.client.insertRow(ctx, "facturas", row, nil); err != nil {
			return err
		}
	}

	fmtQuery := url.Values{"clave_key": {"eq." + formatoKey}}
	if err := s.client.updateRows(ctx, "formatos", fmtQuery, map[string]any{"url_documento": pdfURL}, nil); err != nil {
		// The invoice row is already saved; losing the formato stamp is
		// recoverable, so log and move on.
		s.log.Warn("failed to stamp document URL on formato",
			zap.String("formato", formatoKey), zap.Error(err))
	}
	return nil
}
