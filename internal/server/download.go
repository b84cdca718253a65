package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/facturatech"
)

// downloadSpec maps a URL download type to a provider resource and the
// response headers for streaming it.
type downloadSpec struct {
	kind        facturatech.ResourceKind
	contentType string
	filename    func(prefix, folio string) string
}

var downloadSpecs = map[string]downloadSpec{
	"pdf": {
		kind:        facturatech.ResourcePDF,
		contentType: "application/pdf",
		filename:    func(p, f string) string { return fmt.Sprintf("FE-%s%s.pdf", p, f) },
	},
	"xml": {
		kind:        facturatech.ResourceXML,
		contentType: "application/xml",
		filename:    func(p, f string) string { return fmt.Sprintf("FE-%s%s.xml", p, f) },
	},
	"qr": {
		kind:        facturatech.ResourceQRImage,
		contentType: "image/png",
		filename:    func(p, f string) string { return fmt.Sprintf("QR-%s%s.png", p, f) },
	},
}

// handleDownload streams a provider artifact as an attachment. PDFs are
// structurally validated before they leave the server.
func (s *Server) handleDownload(c *gin.Context) {
	spec, ok := downloadSpecs[strings.ToLower(c.Param("type"))]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tipo de descarga no valido, use: pdf, xml o qr"})
		return
	}
	prefix := c.Param("prefix")
	folio := c.Param("folio")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	res := s.provider.FetchResource(ctx, spec.kind, prefix, folio)
	if !res.OK() {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(res.Message)})
		return
	}

	data, err := base64.StdEncoding.DecodeString(res.Payload)
	if err != nil || len(data) == 0 {
		s.log.Warn("provider resource payload not decodable",
			zap.String("type", string(spec.kind)), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "no se pudo obtener el recurso"})
		return
	}

	if spec.kind == facturatech.ResourcePDF {
		if err := api.Validate(bytes.NewReader(data), nil); err != nil {
			s.log.Error("provider returned a structurally invalid PDF",
				zap.String("prefix", prefix), zap.String("folio", folio), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "el PDF recibido del proveedor es invalido"})
			return
		}
	}

	filename := spec.filename(prefix, folio)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, spec.contentType, data)
}

func notFoundMessage(providerMsg string) string {
	if providerMsg != "" {
		return providerMsg
	}
	return "recurso no encontrado"
}
