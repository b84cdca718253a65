package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/facturatech"
	"github.com/tallermazos/invoice-gateway/internal/model"
	"github.com/tallermazos/invoice-gateway/internal/money"
	"github.com/tallermazos/invoice-gateway/internal/supabase"
)

const defaultVATPercent = 19

// clientePayload is the acquirer as the frontend sends it
type clientePayload struct {
	TipoPersona     string `json:"tipoPersona"`
	TipoDocumento   string `json:"tipoDocumento"`
	NumeroDocumento string `json:"numeroDocumento"`
	RazonSocial     string `json:"razonSocial"`
	Direccion       string `json:"direccion"`
	Ciudad          string `json:"ciudad"`
	Telefono        string `json:"telefono"`
	Email           string `json:"email"`
}

type itemPayload struct {
	Codigo         string   `json:"codigo"`
	Descripcion    string   `json:"descripcion"`
	Cantidad       float64  `json:"cantidad"`
	PrecioUnitario float64  `json:"precioUnitario"`
	PorcentajeIVA  *float64 `json:"porcentajeIva"`
}

type previewRequest struct {
	IDFormato  string         `json:"idFormato"`
	Cliente    clientePayload `json:"cliente"`
	Items      []itemPayload  `json:"items"`
	ManoDeObra float64        `json:"manoDeObra"`
}

type confirmRequest struct {
	TransactionID string `json:"transactionId"`
}

func (p clientePayload) party() model.Party {
	personType := model.PersonType(p.TipoPersona)
	if personType == "" {
		personType = model.PersonNatural
	}
	return model.Party{
		PersonType:     personType,
		DocumentType:   p.TipoDocumento,
		DocumentNumber: p.NumeroDocumento,
		LegalName:      p.RazonSocial,
		Address:        p.Direccion,
		City:           p.Ciudad,
		Phone:          p.Telefono,
		Email:          p.Email,
	}
}

// buildItems converts the payload items, defaulting VAT to 19%, and
// appends labor as its own line when present.
func buildItems(payload []itemPayload, labor float64) []model.LineItem {
	items := make([]model.LineItem, 0, len(payload)+1)
	for i, p := range payload {
		pct := float64(defaultVATPercent)
		if p.PorcentajeIVA != nil {
			pct = *p.PorcentajeIVA
		}
		items = append(items, model.LineItem{
			Index:       i + 1,
			Code:        p.Codigo,
			Description: p.Descripcion,
			Quantity:    money.FromFloat(p.Cantidad),
			UnitPrice:   money.FromFloat(p.PrecioUnitario),
			TaxPercent:  money.FromFloat(pct),
		})
	}
	if labor > 0 {
		items = append(items, model.LineItem{
			Index:       len(items) + 1,
			Code:        "MO001",
			Description: "Mano de obra",
			Quantity:    money.FromInt(1),
			UnitPrice:   money.FromFloat(labor),
			TaxPercent:  money.FromInt(defaultVATPercent),
		})
	}
	return items
}

func totalsJSON(t model.InvoiceTotals) gin.H {
	return gin.H{
		"baseGravable": money.Render(t.TaxableBase),
		"iva":          money.Render(t.Tax),
		"total":        money.Render(t.GrandTotal),
	}
}

// handleGeneratePreview drives the full submission flow: numbering,
// layout, upload, one status poll, best-effort PDF storage, persistence.
func (s *Server) handleGeneratePreview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.IDFormato == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idFormato es requerido"})
		return
	}
	if req.Cliente.NumeroDocumento == "" || req.Cliente.RazonSocial == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos del cliente incompletos"})
		return
	}
	items := buildItems(req.Items, req.ManoDeObra)
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "se requiere al menos un item"})
		return
	}
	for _, it := range items {
		if !money.IsPositive(it.Quantity) || !money.IsPositive(it.UnitPrice) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cantidad y precio unitario deben ser mayores a cero"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Minute)
	defer cancel()

	prefix := s.config.Numbering.Prefix
	sequence, err := s.sequencer.Next(ctx, prefix)
	if err != nil {
		s.log.Error("sequence assignment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo asignar numeracion"})
		return
	}

	totals := model.ComputeTotals(items)
	now := time.Now()
	layout := facturatech.EncodeLayout(facturatech.LayoutInput{
		Header: model.InvoiceHeader{
			IssuerNIT:   s.config.Issuer.NIT,
			Prefix:      prefix,
			Sequence:    sequence,
			IssuedAt:    now,
			DueDate:     now.AddDate(0, 0, 30),
			Currency:    "COP",
			PaymentForm: "1",
			Reference:   fmt.Sprintf("Orden: %s", req.IDFormato),
		},
		Issuer:   s.config.Issuer.Party(),
		Acquirer: req.Cliente.party(),
		Items:    items,
		Totals:   totals,
	})

	upload := s.provider.UploadInvoiceLayout(ctx, layout)
	if !upload.OK() {
		s.log.Error("provider rejected upload",
			zap.String("outcome", string(upload.Outcome)),
			zap.String("message", upload.Message))
		c.JSON(providerStatus(upload), gin.H{
			"error":   "error al enviar a Facturatech",
			"details": upload.Message,
		})
		return
	}

	// Give the provider a moment before the first poll
	select {
	case <-ctx.Done():
	case <-time.After(s.config.StatusDelay):
	}
	status := s.provider.DocumentStatus(ctx, upload.TransactionID)

	folio := strconv.FormatInt(sequence, 10)
	pdfURL := s.storeProviderPDF(ctx, prefix, folio, fmt.Sprintf("FE-%s%s.pdf", prefix, folio))

	rec, err := s.store.CreateEInvoice(ctx, supabase.EInvoiceRecord{
		IDFormato:      req.IDFormato,
		TransactionID:  upload.TransactionID,
		Prefijo:        prefix,
		NumeroFactura:  folio,
		Estado:         supabase.EstadoPreview,
		PDFURL:         pdfURL,
		AdqTipoDoc:     req.Cliente.TipoDocumento,
		AdqNumeroDoc:   req.Cliente.NumeroDocumento,
		AdqRazonSocial: req.Cliente.RazonSocial,
		BaseGravable:   totals.TaxableBase.InexactFloat64(),
		IVA:            totals.Tax.InexactFloat64(),
		Total:          totals.GrandTotal.InexactFloat64(),
	})
	if err != nil {
		// The invoice is already with the provider; report it anyway
		s.log.Error("failed to persist preview record", zap.Error(err))
	}

	resp := gin.H{
		"success": true,
		"message": "vista previa generada exitosamente",
		"data": gin.H{
			"transactionId": upload.TransactionID,
			"numeroFactura": prefix + folio,
			"pdfUrl":        pdfURL,
			"status":        statusOrDefault(status, "procesando"),
			"totales":       totalsJSON(totals),
		},
	}
	if rec != nil {
		resp["data"].(gin.H)["facturaId"] = rec.ID
	}
	c.JSON(http.StatusOK, resp)
}

// handleConfirm finalizes a submitted invoice: refreshes status,
// fetches the CUFE and the signed PDF, and flips the record to
// VALIDADA once a CUFE exists.
func (s *Server) handleConfirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TransactionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transactionId es requerido"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Minute)
	defer cancel()

	rec, err := s.store.EInvoiceByTransaction(ctx, req.TransactionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "factura no encontrada"})
		return
	}

	status := s.provider.DocumentStatus(ctx, req.TransactionID)

	cufe := ""
	if res := s.provider.FetchResource(ctx, facturatech.ResourceCUFE, rec.Prefijo, rec.NumeroFactura); res.OK() {
		cufe = res.Payload
	}

	pdfURL := rec.PDFURL
	if url := s.storeProviderPDF(ctx, rec.Prefijo, rec.NumeroFactura,
		fmt.Sprintf("FE-%s%s-FIRMADO.pdf", rec.Prefijo, rec.NumeroFactura)); url != "" {
		pdfURL = url
	}

	estado := supabase.EstadoProcesando
	if cufe != "" {
		estado = supabase.EstadoValidada
	}

	patch := map[string]any{
		"estado":           estado,
		"cufe":             cufe,
		"pdf_url":          pdfURL,
		"response_code":    status.Status,
		"response_message": status.Message,
	}
	updated, err := s.store.UpdateEInvoice(ctx, rec.ID, patch)
	if err != nil {
		s.log.Error("failed to update invoice record", zap.Int64("id", rec.ID), zap.Error(err))
		updated = rec
	}

	message := "factura en proceso de validacion"
	if estado == supabase.EstadoValidada {
		message = "factura electronica validada exitosamente"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data": gin.H{
			"id":            updated.ID,
			"transactionId": req.TransactionID,
			"numeroFactura": rec.Prefijo + rec.NumeroFactura,
			"cufe":          cufe,
			"pdfUrl":        pdfURL,
			"estado":        estado,
			"totales": gin.H{
				"baseGravable": rec.BaseGravable,
				"iva":          rec.IVA,
				"total":        rec.Total,
			},
		},
	})
}

// handleStatus returns the stored record, refreshing the provider
// status first when the invoice is not yet validated.
func (s *Server) handleStatus(c *gin.Context) {
	transactionID := c.Param("transactionId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	rec, err := s.store.EInvoiceByTransaction(ctx, transactionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "factura no encontrada"})
		return
	}

	if rec.Estado != supabase.EstadoValidada {
		status := s.provider.DocumentStatus(ctx, transactionID)
		if status.OK() && status.Status != rec.ResponseCode {
			updated, err := s.store.UpdateEInvoice(ctx, rec.ID, map[string]any{
				"response_code":    status.Status,
				"response_message": status.Message,
			})
			if err != nil {
				s.log.Warn("status refresh not persisted", zap.Int64("id", rec.ID), zap.Error(err))
			} else {
				rec = updated
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (s *Server) handleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := supabase.ListFilter{
		Estado:   c.Query("estado"),
		Busqueda: c.Query("busqueda"),
		Limit:    limit,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	rows, err := s.store.ListEInvoices(ctx, filter)
	if err != nil {
		s.log.Error("listing invoices failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error al listar facturas electronicas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows, "count": len(rows)})
}

// storeProviderPDF downloads the provider PDF and re-uploads it to
// document storage. Best effort: any failure returns "" and the flow
// continues without a stored PDF.
func (s *Server) storeProviderPDF(ctx context.Context, prefix, folio, filename string) string {
	res := s.provider.FetchResource(ctx, facturatech.ResourcePDF, prefix, folio)
	if !res.OK() {
		s.log.Warn("provider PDF not available yet",
			zap.String("prefix", prefix), zap.String("folio", folio),
			zap.String("message", res.Message))
		return ""
	}
	if _, err := base64.StdEncoding.DecodeString(res.Payload); err != nil {
		s.log.Warn("provider PDF payload is not valid base64", zap.Error(err))
		return ""
	}

	url, err := s.pdf.UploadBase64(ctx, res.Payload, filename)
	if err != nil {
		s.log.Warn("PDF storage upload failed", zap.String("filename", filename), zap.Error(err))
		return ""
	}
	return url
}

func providerStatus(res *model.SubmissionResult) int {
	switch res.Outcome {
	case model.OutcomeBusinessError:
		return http.StatusUnprocessableEntity
	case model.OutcomeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

func statusOrDefault(res *model.SubmissionResult, fallback string) string {
	if res != nil && res.OK() && res.Status != "" {
		return res.Status
	}
	return fallback
}
