package pdfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

const defaultTimeout = 60 * time.Second

// Client calls the external HTML-to-PDF conversion service, which
// renders the PDF and stores it in Google Drive.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests)
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a conversion service client
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pdfOptions struct {
	Format string    `json:"format"`
	Margin pdfMargin `json:"margin"`
}

type pdfMargin struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

type convertRequest struct {
	HTML       string     `json:"html"`
	Filename   string     `json:"filename"`
	PDFOptions pdfOptions `json:"pdfOptions"`
}

type uploadRequest struct {
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

// driveLinks is the nested googleDrive block of the service response
type driveLinks struct {
	DirectLink   string `json:"directLink"`
	DownloadLink string `json:"downloadLink"`
	ViewLink     string `json:"viewLink"`
}

type serviceResponse struct {
	Data *struct {
		GoogleDrive *driveLinks `json:"googleDrive"`
	} `json:"data"`
	URL      string `json:"url"`
	DriveURL string `json:"driveUrl"`
}

// bestURL picks the most direct usable link out of the response.
// Preference order: directLink, downloadLink, viewLink, then the flat
// url fields some deployments return instead.
func (r serviceResponse) bestURL() string {
	if r.Data != nil && r.Data.GoogleDrive != nil {
		gd := r.Data.GoogleDrive
		for _, u := range []string{gd.DirectLink, gd.DownloadLink, gd.ViewLink} {
			if u != "" {
				return u
			}
		}
	}
	if r.URL != "" {
		return r.URL
	}
	return r.DriveURL
}

// ConvertHTML renders the given HTML into an A4 PDF with 20px margins
// and returns the storage URL of the result.
func (c *Client) ConvertHTML(ctx context.Context, html, filename string) (string, error) {
	req := convertRequest{
		HTML:     html,
		Filename: filename,
		PDFOptions: pdfOptions{
			Format: "A4",
			Margin: pdfMargin{Top: "20px", Right: "20px", Bottom: "20px", Left: "20px"},
		},
	}
	return c.post(ctx, "/api/convert/html-to-pdf", req)
}

// UploadBase64 stores an already-rendered PDF (base64) and returns its
// storage URL.
func (c *Client) UploadBase64(ctx context.Context, base64Data, filename string) (string, error) {
	req := uploadRequest{
		Base64:   base64Data,
		Filename: filename,
		MimeType: "application/pdf",
	}
	return c.post(ctx, "/api/upload/base64", req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", model.NewRequestError("pdfapi", path, 0, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", model.NewRequestError("pdfapi", path, 0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", model.NewRequestError("pdfapi", path, 0, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewRequestError("pdfapi", path, resp.StatusCode, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return "", model.NewRequestError("pdfapi", path, resp.StatusCode, msg, nil)
	}

	var sr serviceResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", model.NewRequestError("pdfapi", path, resp.StatusCode, "decode response", err)
	}

	url := sr.bestURL()
	if url == "" {
		return "", model.NewRequestError("pdfapi", path, resp.StatusCode, "response carries no document URL", nil)
	}
	c.log.Debug("document stored", zap.String("path", path), zap.String("url", url))
	return url, nil
}
