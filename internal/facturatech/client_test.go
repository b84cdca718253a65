package facturatech

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

const uploadResponse = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <SOAP-ENV:Body>
    <ns1:FtechAction.uploadInvoiceFileLayoutResponse>
      <return>
        <transactionId>%s</transactionId>
        <message>%s</message>
      </return>
    </ns1:FtechAction.uploadInvoiceFileLayoutResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func testClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	cfg := Config{
		Endpoint:     url,
		Username:     "user@taller.co",
		PasswordHash: "deadbeef",
		Timeout:      5 * time.Second,
		MaxAttempts:  5,
		BodyBase:     time.Millisecond,
		GatewayBase:  time.Millisecond,
	}
	return NewClient(cfg, nil, opts...)
}

func TestUploadInvoiceLayoutSuccess(t *testing.T) {
	var gotAction, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprintf(w, uploadResponse, "78901", "Documento recibido")
	}))
	defer srv.Close()

	layout := "[FACTURA]\n(ENC)\nENC_1:INVOIC;\n(/ENC)"
	c := testClient(t, srv.URL)
	res := c.UploadInvoiceLayout(context.Background(), layout)

	require.True(t, res.OK())
	assert.Equal(t, "78901", res.TransactionID)
	assert.Equal(t, "Documento recibido", res.Message)
	assert.Equal(t, `"urn:FacturaTech#FtechAction.uploadInvoiceFileLayout"`, gotAction)
	assert.NotEmpty(t, res.Raw)

	// the service reads the base64 payload from the "layout" parameter
	encoded, err := encodeLayoutParam(layout)
	require.NoError(t, err)
	assert.Contains(t, gotBody, "<layout>"+encoded+"</layout>")
}

func TestUploadInvoiceLayoutZeroTransactionIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, uploadResponse, "0", "Documento rechazado")
	}))
	defer srv.Close()

	res := testClient(t, srv.URL).UploadInvoiceLayout(context.Background(), "layout")
	require.Equal(t, model.OutcomeBusinessError, res.Outcome)
	assert.Empty(t, res.TransactionID)
	assert.Equal(t, "Documento rechazado", res.Message)
}

func TestCallRetriesNonXMLBodyUpToCeiling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "Service temporarily unavailable")
	}))
	defer srv.Close()

	res := testClient(t, srv.URL).UploadInvoiceLayout(context.Background(), "layout")
	require.Equal(t, model.OutcomeTransportError, res.Outcome)
	assert.Equal(t, int32(5), calls.Load())
	assert.Contains(t, res.Message, "no valid response")
}

func TestCallRetriesGatewayErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, uploadResponse, "555", "ok")
	}))
	defer srv.Close()

	res := testClient(t, srv.URL).UploadInvoiceLayout(context.Background(), "layout")
	require.True(t, res.OK())
	assert.Equal(t, "555", res.TransactionID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallDoesNotRetryFaults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Client</faultcode>
      <faultstring>Credenciales invalidas</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`)
	}))
	defer srv.Close()

	res := testClient(t, srv.URL).UploadInvoiceLayout(context.Background(), "layout")
	require.Equal(t, model.OutcomeBusinessError, res.Outcome)
	assert.Equal(t, "Credenciales invalidas", res.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallDoesNotRetryUnexpectedStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := testClient(t, srv.URL).UploadInvoiceLayout(context.Background(), "layout")
	require.Equal(t, model.OutcomeTransportError, res.Outcome)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not xml")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	c.cfg.BodyBase = time.Minute // park the retry in backoff

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *model.SubmissionResult, 1)
	go func() {
		done <- c.UploadInvoiceLayout(ctx, "layout")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.Equal(t, model.OutcomeCancelled, res.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("call did not return after cancellation")
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := testClient(t, "http://unused.invalid", WithClock(clock))
	c.cfg.GatewayBase = time.Second

	for _, tc := range []struct {
		attempt int
		delay   time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	} {
		done := make(chan *model.SubmissionResult, 1)
		go func() {
			done <- c.backoff(context.Background(), methodUpload, tc.attempt, c.cfg.GatewayBase, "test", 503)
		}()

		clock.BlockUntil(1)
		clock.Advance(tc.delay - time.Millisecond)
		select {
		case <-done:
			t.Fatalf("attempt %d returned before its full delay", tc.attempt)
		case <-time.After(20 * time.Millisecond):
		}

		clock.Advance(time.Millisecond)
		select {
		case res := <-done:
			assert.Nil(t, res)
		case <-time.After(time.Second):
			t.Fatalf("attempt %d did not wake after %s", tc.attempt, tc.delay)
		}
	}
}

func TestBackoffStopsAtCeiling(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := testClient(t, "http://unused.invalid", WithClock(clock))

	// At the last attempt there is nothing to wait for
	res := c.backoff(context.Background(), methodUpload, c.cfg.MaxAttempts, time.Minute, "test", 503)
	assert.Nil(t, res)
}

func TestDocumentStatus(t *testing.T) {
	for _, tc := range []struct {
		name        string
		fields      string
		wantStatus  string
		wantMessage string
	}{
		{
			name:        "status element",
			fields:      "<status>PROCESANDO</status><message>Documento en proceso</message>",
			wantStatus:  "PROCESANDO",
			wantMessage: "Documento en proceso",
		},
		{
			name:        "numeric code element",
			fields:      "<code>200</code><message>Documento aprobado por DIAN</message>",
			wantStatus:  "200",
			wantMessage: "Documento aprobado por DIAN",
		},
		{
			name:       "bare status without message",
			fields:     "<status>VALIDADA</status>",
			wantStatus: "VALIDADA",
			// message falls back to the status itself
			wantMessage: "VALIDADA",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <SOAP-ENV:Body>
    <ns1:FtechAction.documentStatusFileResponse>
      <return>%s</return>
    </ns1:FtechAction.documentStatusFileResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`, tc.fields)
			}))
			defer srv.Close()

			res := testClient(t, srv.URL).DocumentStatus(context.Background(), "78901")
			require.True(t, res.OK())
			assert.Equal(t, tc.wantStatus, res.Status)
			assert.Equal(t, tc.wantMessage, res.Message)
		})
	}
}

func TestFetchResource(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 fake"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <SOAP-ENV:Body>
    <ns1:FtechAction.downloadPDFFileResponse>
      <return>
        <resourceData>%s</resourceData>
      </return>
    </ns1:FtechAction.downloadPDFFileResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`, payload)
	}))
	defer srv.Close()

	res := testClient(t, srv.URL).FetchResource(context.Background(), ResourcePDF, "SETT", "42")
	require.True(t, res.OK())
	assert.Equal(t, payload, res.Payload)
}

func TestFetchResourceUnknownKind(t *testing.T) {
	res := testClient(t, "http://unused.invalid").FetchResource(context.Background(), ResourceKind("docx"), "SETT", "42")
	require.Equal(t, model.OutcomeBusinessError, res.Outcome)
	assert.Contains(t, res.Message, "docx")
}

func TestEncodeLayoutParamLatin1(t *testing.T) {
	encoded, err := encodeLayoutParam("\ufeffSeñal")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	// BOM stripped, ñ is a single latin-1 byte
	assert.Equal(t, []byte{'S', 'e', 0xf1, 'a', 'l'}, raw)
}
