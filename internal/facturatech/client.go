package facturatech

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

// Webservice method names
const (
	methodUpload  = "FtechAction.uploadInvoiceFileLayout"
	methodStatus  = "FtechAction.documentStatusFile"
	methodPDF     = "FtechAction.downloadPDFFile"
	methodXML     = "FtechAction.downloadXMLFile"
	methodCUFE    = "FtechAction.getCUFEFile"
	methodQRData  = "FtechAction.getQRFile"
	methodQRImage = "FtechAction.getQRImageFile"
)

const (
	defaultTimeout     = 2 * time.Minute // remote service is slow
	defaultMaxAttempts = 5
	defaultBodyBase    = 5 * time.Second // non-XML bodies: gateway outage, back off hard
	defaultGatewayBase = 1 * time.Second // 5xx and parse errors: shorter ramp

	previewLen = 500
)

// Config holds the client configuration, fixed at construction time
type Config struct {
	Endpoint     string
	Username     string
	PasswordHash string // SHA-256 hex credential, sent as-is
	ProxyURL     string
	Timeout      time.Duration
	MaxAttempts  int
	BodyBase     time.Duration // backoff base for non-XML response bodies
	GatewayBase  time.Duration // backoff base for gateway 5xx and parse errors
}

// Client submits invoices to the Facturatech SOAP webservice with
// bounded retries. Each call owns its own envelope and request; the
// client itself holds only configuration and is safe for concurrent use.
type Client struct {
	cfg   Config
	http  *http.Client
	clock clockwork.Clock
	log   *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests)
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithClock replaces the backoff clock (tests)
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a webservice client. Missing credentials are logged
// as a warning, not an error: the call will still go out and come back
// as a business failure the caller can see.
func NewClient(cfg Config, log *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BodyBase <= 0 {
		cfg.BodyBase = defaultBodyBase
	}
	if cfg.GatewayBase <= 0 {
		cfg.GatewayBase = defaultGatewayBase
	}
	if log == nil {
		log = zap.NewNop()
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.ProxyURL != "" {
		if proxy, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
			log.Info("outbound proxy configured", zap.String("proxy_host", proxy.Host))
		} else {
			log.Warn("invalid proxy URL, using direct connection", zap.Error(err))
		}
	}

	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		clock: clockwork.NewRealClock(),
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Username == "" || cfg.PasswordHash == "" {
		c.log.Warn("facturatech credentials not configured, submissions will fail")
	}
	return c
}

func (c *Client) credentials() []soapParam {
	return []soapParam{
		{Name: "username", Value: c.cfg.Username},
		{Name: "password", Value: c.cfg.PasswordHash},
	}
}

// call drives the retry state machine for one SOAP invocation. It
// returns either a classified reply plus the raw body, or a terminal
// tagged result. Transient failures (non-XML body, gateway 502/503/504,
// XML parse error) are retried with exponential backoff up to the
// attempt ceiling; everything else is terminal on first sight.
func (c *Client) call(ctx context.Context, method string, params []soapParam) (*soapReply, string, *model.SubmissionResult) {
	envelope := buildEnvelope(method, params)
	action := soapAction(method)

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		c.log.Info("calling facturatech",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.MaxAttempts))

		body, status, err := c.post(ctx, envelope, action)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", cancelled(ctx)
			}
			// Connection-level failure with no response: terminal
			c.log.Error("facturatech request failed", zap.String("method", method), zap.Int("attempt", attempt), zap.Error(err))
			return nil, "", transportFailure("request failed: " + err.Error())
		}

		preview := truncate(body, previewLen)
		c.log.Debug("facturatech response",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Int("body_length", len(body)),
			zap.String("preview", preview))

		if status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout {
			if fail := c.backoff(ctx, method, attempt, c.cfg.GatewayBase, "gateway error", status); fail != nil {
				return nil, "", fail
			}
			continue
		}
		if status != http.StatusOK {
			return nil, "", transportFailure("unexpected status " + httpStatusText(status) + ": " + preview)
		}

		trimmed := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
		if !strings.HasPrefix(trimmed, "<") {
			// HTML error page or empty body from the intermediary,
			// misreported as a 200
			if fail := c.backoff(ctx, method, attempt, c.cfg.BodyBase, "response body is not XML", status); fail != nil {
				return nil, "", fail
			}
			continue
		}

		doc := etree.NewDocument()
		if parseErr := doc.ReadFromString(trimmed); parseErr != nil {
			if fail := c.backoff(ctx, method, attempt, c.cfg.GatewayBase, "XML parse error: "+parseErr.Error(), status); fail != nil {
				return nil, "", fail
			}
			continue
		}

		reply := parseReply(doc, method)
		if reply.kind == replyOpaque {
			c.log.Warn("unrecognized SOAP response shape",
				zap.String("method", method),
				zap.String("preview", preview))
		}
		return reply, trimmed, nil
	}

	c.log.Error("facturatech attempts exhausted", zap.String("method", method), zap.Int("attempts", c.cfg.MaxAttempts))
	return nil, "", transportFailure("no valid response after retries")
}

// backoff waits base * 2^attempt before the next try. Returns nil to
// proceed, or a terminal result when the context is cancelled. At the
// attempt ceiling it returns nil without sleeping; the loop exits.
func (c *Client) backoff(ctx context.Context, method string, attempt int, base time.Duration, reason string, status int) *model.SubmissionResult {
	if attempt >= c.cfg.MaxAttempts {
		return nil
	}
	delay := base << uint(attempt)
	c.log.Warn("transient facturatech failure, retrying",
		zap.String("method", method),
		zap.Int("attempt", attempt),
		zap.Int("status", status),
		zap.Duration("delay", delay),
		zap.String("reason", reason))

	select {
	case <-ctx.Done():
		return cancelled(ctx)
	case <-c.clock.After(delay):
		return nil
	}
}

func (c *Client) post(ctx context.Context, envelope, action string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(envelope))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)
	req.Header.Set("Accept", "text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	return string(body), resp.StatusCode, nil
}

func transportFailure(msg string) *model.SubmissionResult {
	return &model.SubmissionResult{Outcome: model.OutcomeTransportError, Message: msg}
}

func cancelled(ctx context.Context) *model.SubmissionResult {
	return &model.SubmissionResult{Outcome: model.OutcomeCancelled, Message: ctx.Err().Error()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func httpStatusText(status int) string {
	return strconv.Itoa(status) + " " + http.StatusText(status)
}
