package facturatech

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

// ResourceKind names a downloadable artifact of an accepted invoice
type ResourceKind string

const (
	ResourcePDF     ResourceKind = "pdf"
	ResourceXML     ResourceKind = "xml"
	ResourceCUFE    ResourceKind = "cufe"
	ResourceQRData  ResourceKind = "qr-data"
	ResourceQRImage ResourceKind = "qr-image"
)

var resourceMethods = map[ResourceKind]string{
	ResourcePDF:     methodPDF,
	ResourceXML:     methodXML,
	ResourceCUFE:    methodCUFE,
	ResourceQRData:  methodQRData,
	ResourceQRImage: methodQRImage,
}

// fieldSpec describes how to project one SOAP reply field into the
// submission result. Fallback names cover the provider's habit of
// renaming response elements between methods.
type fieldSpec struct {
	names     []string
	isFailure func(value string) bool
	assign    func(res *model.SubmissionResult, value string)
}

// emptyOrZero is the provider's "no result" sentinel
func emptyOrZero(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "0"
}

// UploadInvoiceLayout submits one invoice as a flat-file layout. The
// layout is encoded latin-1 then base64, matching the service contract.
// A reply whose transaction id is empty or "0" is a rejected upload.
func (c *Client) UploadInvoiceLayout(ctx context.Context, layout string) *model.SubmissionResult {
	encoded, err := encodeLayoutParam(layout)
	if err != nil {
		return &model.SubmissionResult{
			Outcome: model.OutcomeTransportError,
			Message: "layout encoding failed: " + err.Error(),
		}
	}

	params := append(c.credentials(), soapParam{Name: "layout", Value: encoded})
	return c.operate(ctx, methodUpload, params, fieldSpec{
		names:     []string{"transactionId", "transaccionID", "return"},
		isFailure: emptyOrZero,
		assign: func(res *model.SubmissionResult, v string) {
			res.TransactionID = v
		},
	})
}

// DocumentStatus queries the DIAN processing state of a prior upload
func (c *Client) DocumentStatus(ctx context.Context, transactionID string) *model.SubmissionResult {
	params := append(c.credentials(), soapParam{Name: "transaccionID", Value: transactionID})
	res := c.operate(ctx, methodStatus, params, fieldSpec{
		names:     []string{"status", "code", "estado", "return"},
		isFailure: func(string) bool { return false },
		assign: func(res *model.SubmissionResult, v string) {
			res.Status = v
		},
	})
	if res.Outcome == model.OutcomeSuccess && res.Message == "" {
		res.Message = res.Status
	}
	return res
}

// FetchResource downloads one artifact (PDF, XML, CUFE, QR data or QR
// image) for an accepted invoice, identified by prefix and folio. The
// artifact arrives base64-encoded in Payload; decoding is left to the
// caller, who knows whether the kind is binary.
func (c *Client) FetchResource(ctx context.Context, kind ResourceKind, prefix, folio string) *model.SubmissionResult {
	method, ok := resourceMethods[kind]
	if !ok {
		return &model.SubmissionResult{
			Outcome: model.OutcomeBusinessError,
			Message: fmt.Sprintf("unknown resource kind %q", kind),
		}
	}

	params := append(c.credentials(),
		soapParam{Name: "prefijo", Value: prefix},
		soapParam{Name: "folio", Value: folio},
	)
	return c.operate(ctx, method, params, fieldSpec{
		names:     []string{"resourceData", "return", "document"},
		isFailure: emptyOrZero,
		assign: func(res *model.SubmissionResult, v string) {
			res.Payload = v
		},
	})
}

// operate runs one SOAP call end to end: transport with retries,
// fault classification, then projection of the reply fields through
// the given spec.
func (c *Client) operate(ctx context.Context, method string, params []soapParam, spec fieldSpec) *model.SubmissionResult {
	reply, raw, fail := c.call(ctx, method, params)
	if fail != nil {
		return fail
	}

	res := &model.SubmissionResult{Raw: raw}

	if reply.kind == replyFault {
		res.Outcome = model.OutcomeBusinessError
		res.Status = reply.code
		res.Message = reply.message
		if res.Message == "" {
			res.Message = "webservice reported an error"
		}
		return res
	}

	// Opaque replies still get field extraction: the navigation is
	// namespace-agnostic, so a well-formed body under an unexpected
	// wrapper usually yields the fields anyway.
	value := findText(reply.payload, spec.names...)
	if value == "" || spec.isFailure(value) {
		res.Outcome = model.OutcomeBusinessError
		res.Message = replyMessage(reply, "webservice returned no usable result")
		return res
	}

	res.Outcome = model.OutcomeSuccess
	spec.assign(res, value)
	res.Message = findText(reply.payload, "message")
	return res
}

func replyMessage(reply *soapReply, fallback string) string {
	if msg := findText(reply.payload, "message", "mensaje"); msg != "" {
		return msg
	}
	if reply.message != "" {
		return reply.message
	}
	return fallback
}

// encodeLayoutParam strips any BOM and re-encodes the layout as
// latin-1 before base64, per the service's declared charset.
func encodeLayoutParam(layout string) (string, error) {
	layout = strings.TrimPrefix(layout, "\ufeff")
	raw, err := charmap.ISO8859_1.NewEncoder().String(layout)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}
