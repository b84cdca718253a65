package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/supabase"
)

// generateInvoiceRequest carries a pre-rendered quote document. The
// frontend renders its own HTML; this endpoint only converts, stores
// and records it.
type generateInvoiceRequest struct {
	Formato struct {
		ClaveKey      string `json:"clave_key"`
		NombreCliente string `json:"nombre_cliente"`
	} `json:"formato"`
	HTML  string `json:"html"`
	Total float64 `json:"total"`
}

// handleGenerateInvoice converts quote HTML to a stored PDF and
// records the invoice against its formato.
func (s *Server) handleGenerateInvoice(c *gin.Context) {
	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Formato.ClaveKey == "" || req.HTML == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "faltan datos para generar la factura"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	filename := fmt.Sprintf("%s.pdf", req.Formato.ClaveKey)
	driveURL, err := s.pdf.ConvertHTML(ctx, req.HTML, filename)
	if err != nil {
		s.log.Error("PDF conversion failed", zap.String("formato", req.Formato.ClaveKey), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "error al generar el PDF"})
		return
	}

	if err := s.store.SaveQuoteInvoice(ctx, req.Formato.ClaveKey, req.Total, driveURL, req.Formato.NombreCliente); err != nil {
		s.log.Error("failed to persist quote invoice", zap.String("formato", req.Formato.ClaveKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error al guardar la factura"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "factura generada exitosamente",
		"data": gin.H{
			"pdf": gin.H{
				"fileName": fmt.Sprintf("factura-%s.pdf", req.Formato.ClaveKey),
				"url":      driveURL,
			},
		},
		"invoiceUrl": driveURL,
		"pdfUrl":     driveURL,
	})
}

func (s *Server) handleSearchClients(c *gin.Context) {
	term := c.Query("q")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	rows, err := s.store.SearchFiscalClients(ctx, term)
	if err != nil {
		s.log.Error("fiscal client search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error al buscar clientes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows})
}

func (s *Server) handleUpsertClient(c *gin.Context) {
	var client supabase.FiscalClient
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if client.NumeroDocumento == "" || client.RazonSocial == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos del cliente incompletos"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	saved, err := s.store.UpsertFiscalClient(ctx, client)
	if err != nil {
		s.log.Error("fiscal client upsert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error al guardar cliente"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": saved})
}
