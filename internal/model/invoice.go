package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallermazos/invoice-gateway/internal/money"
)

// PersonType distinguishes juridical from natural persons (DIAN codes)
type PersonType string

const (
	PersonJuridical PersonType = "1"
	PersonNatural   PersonType = "2"
)

// InvoiceHeader carries document-level data for one submission
type InvoiceHeader struct {
	IssuerNIT   string
	Prefix      string
	Sequence    int64
	IssuedAt    time.Time
	DueDate     time.Time
	Currency    string // fixed to COP
	PaymentForm string // 1=cash, 2=credit
	Reference   string
}

// Party is either the issuer or the acquirer of an invoice
type Party struct {
	PersonType           PersonType
	DocumentType         string // CC, NIT, CE, PP, TI, DIE
	DocumentNumber       string
	CheckDigit           string
	LegalName            string
	TradeName            string
	Address              string
	CityCode             string
	City                 string
	Department           string
	DepartmentCode       string
	Country              string
	Phone                string
	Email                string
	FiscalResponsibility string
	TaxRegime            string
}

// DIANDocumentCode maps the party document type to the DIAN code table.
// Unknown types fall back to 13 (cedula de ciudadania).
func (p Party) DIANDocumentCode() string {
	if code, ok := dianDocumentCodes[p.DocumentType]; ok {
		return code
	}
	return DefaultDocumentCode
}

// LineItem is one billed product or service
type LineItem struct {
	Index       int
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxPercent  decimal.Decimal
}

// Subtotal returns quantity * unit price, rounded to 2 places
func (li LineItem) Subtotal() decimal.Decimal {
	return money.LineSubtotal(li.Quantity, li.UnitPrice)
}

// Tax returns the tax amount for the line
func (li LineItem) Tax() decimal.Decimal {
	return money.TaxAmount(li.Subtotal(), li.TaxPercent)
}

// Total returns subtotal plus tax
func (li LineItem) Total() decimal.Decimal {
	return li.Subtotal().Add(li.Tax())
}

// InvoiceTotals holds invoice-level amounts, computed once per submission
type InvoiceTotals struct {
	TaxableBase decimal.Decimal
	Tax         decimal.Decimal
	GrandTotal  decimal.Decimal
}

// ComputeTotals sums line subtotals and taxes over all items
func ComputeTotals(items []LineItem) InvoiceTotals {
	subtotals := make([]decimal.Decimal, 0, len(items))
	taxes := make([]decimal.Decimal, 0, len(items))
	for _, li := range items {
		subtotals = append(subtotals, li.Subtotal())
		taxes = append(taxes, li.Tax())
	}
	base := money.Sum(subtotals)
	tax := money.Sum(taxes)
	return InvoiceTotals{
		TaxableBase: base,
		Tax:         tax,
		GrandTotal:  money.Round2(base.Add(tax)),
	}
}

// Outcome classifies a provider call result
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeBusinessError  Outcome = "business_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeCancelled      Outcome = "cancelled"
)

// SubmissionResult is the tagged result of any provider operation.
// Callers branch on Outcome instead of error handling.
type SubmissionResult struct {
	Outcome       Outcome
	TransactionID string
	Status        string
	Message       string
	Payload       string // base64 resource data or other extracted field
	Raw           string // raw provider body, kept for diagnostics
}

// OK reports whether the operation succeeded
func (r SubmissionResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}
