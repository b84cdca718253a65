package facturatech

import (
	"fmt"
	"strings"

	"github.com/tallermazos/invoice-gateway/internal/model"
	"github.com/tallermazos/invoice-gateway/internal/money"
)

// Flat-file field separator and terminator. The provider accepts a single
// canonical variant: FIELD:value; per line. Both characters are stripped
// from embedded free text by SanitizeValue.
const (
	fieldSeparator  = ':'
	fieldTerminator = ';'
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"

	maxItemCodeLen = 20
)

// LayoutInput carries everything the encoder needs for one invoice
type LayoutInput struct {
	Header   model.InvoiceHeader
	Issuer   model.Party
	Acquirer model.Party
	Items    []model.LineItem
	Totals   model.InvoiceTotals
}

// EncodeLayout serializes an invoice into the provider's flat-file layout.
// Pure function of its input: the same input always yields the same bytes.
// An empty item list simply emits no ITE blocks; callers must reject it
// before getting here.
func EncodeLayout(in LayoutInput) string {
	var b strings.Builder

	h := in.Header
	issuer := in.Issuer
	acq := in.Acquirer

	b.WriteString("[FACTURA]\n")

	openSection(&b, "ENC")
	field(&b, "ENC_1", "INVOIC")
	field(&b, "ENC_2", h.IssuerNIT)
	field(&b, "ENC_3", fmt.Sprintf("%d", h.Sequence))
	field(&b, "ENC_4", "UBL 2.1")
	field(&b, "ENC_5", "DIAN 2.1")
	field(&b, "ENC_6", "01") // sales invoice
	field(&b, "ENC_7", h.IssuedAt.Format(dateLayout))
	field(&b, "ENC_8", h.IssuedAt.Format(timeLayout))
	field(&b, "ENC_9", "01")
	field(&b, "ENC_10", h.Currency)
	field(&b, "ENC_15", fmt.Sprintf("%d", len(in.Items)))
	field(&b, "ENC_16", h.DueDate.Format(dateLayout))
	field(&b, "ENC_20", defaultStr(h.PaymentForm, "1"))
	field(&b, "ENC_21", "10") // cash payment means
	field(&b, "ENC_22", SanitizeValue(h.Reference))
	closeSection(&b, "ENC")

	openSection(&b, "EMI")
	field(&b, "EMI_1", string(issuer.PersonType))
	field(&b, "EMI_2", issuer.DocumentNumber)
	field(&b, "EMI_3", "31") // issuer always identified by NIT
	field(&b, "EMI_4", issuer.CheckDigit)
	field(&b, "EMI_6", SanitizeValue(issuer.LegalName))
	field(&b, "EMI_7", SanitizeValue(issuer.TradeName))
	field(&b, "EMI_10", SanitizeValue(issuer.Address))
	field(&b, "EMI_11", issuer.DepartmentCode)
	field(&b, "EMI_12", SanitizeValue(issuer.City))
	field(&b, "EMI_13", SanitizeValue(issuer.Department))
	field(&b, "EMI_14", issuer.CityCode)
	field(&b, "EMI_15", issuer.Country)
	field(&b, "EMI_18", SanitizeValue(issuer.Address))
	field(&b, "EMI_19", SanitizeValue(issuer.Department))
	field(&b, "EMI_21", "Colombia")
	field(&b, "EMI_22", issuer.Phone)
	field(&b, "EMI_23", issuer.FiscalResponsibility)
	field(&b, "EMI_24", SanitizeValue(issuer.TradeName))
	field(&b, "EMI_25", issuer.TaxRegime)
	closeSection(&b, "EMI")

	openSection(&b, "ADQ")
	field(&b, "ADQ_1", defaultStr(string(acq.PersonType), string(model.PersonNatural)))
	field(&b, "ADQ_2", acq.DocumentNumber)
	field(&b, "ADQ_3", acq.DIANDocumentCode())
	field(&b, "ADQ_4", acq.CheckDigit)
	field(&b, "ADQ_6", SanitizeValue(acq.LegalName))
	field(&b, "ADQ_7", SanitizeValue(defaultStr(acq.TradeName, acq.LegalName)))
	field(&b, "ADQ_10", SanitizeValue(acq.Address))
	field(&b, "ADQ_11", defaultStr(acq.DepartmentCode, issuer.DepartmentCode))
	field(&b, "ADQ_12", SanitizeValue(defaultStr(acq.City, issuer.City)))
	field(&b, "ADQ_13", SanitizeValue(defaultStr(acq.Department, issuer.Department)))
	field(&b, "ADQ_14", defaultStr(acq.CityCode, issuer.CityCode))
	field(&b, "ADQ_15", issuer.Country)
	field(&b, "ADQ_18", SanitizeValue(acq.Address))
	field(&b, "ADQ_19", SanitizeValue(defaultStr(acq.Department, issuer.Department)))
	field(&b, "ADQ_21", "Colombia")
	field(&b, "ADQ_22", acq.Phone)
	field(&b, "ADQ_23", defaultStr(acq.FiscalResponsibility, "R-99-PN"))
	field(&b, "ADQ_24", SanitizeValue(acq.LegalName))
	field(&b, "ADQ_25", defaultStr(acq.TaxRegime, "49"))
	field(&b, "ADQ_26", acq.Email)
	closeSection(&b, "ADQ")

	openSection(&b, "TOT")
	field(&b, "TOT_1", money.Render(in.Totals.TaxableBase))
	field(&b, "TOT_2", h.Currency)
	field(&b, "TOT_3", money.Render(in.Totals.GrandTotal))
	field(&b, "TOT_4", h.Currency)
	field(&b, "TOT_5", money.Render(in.Totals.TaxableBase))
	field(&b, "TOT_6", h.Currency)
	field(&b, "TOT_7", money.Render(in.Totals.Tax))
	field(&b, "TOT_8", h.Currency)
	closeSection(&b, "TOT")

	openSection(&b, "TAC")
	field(&b, "TAC_1", issuer.FiscalResponsibility)
	closeSection(&b, "TAC")

	for i, item := range in.Items {
		writeItem(&b, i, item)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func writeItem(b *strings.Builder, i int, item model.LineItem) {
	index := item.Index
	if index == 0 {
		index = i + 1
	}
	code := SanitizeValue(item.Code)
	if code == "" {
		code = fmt.Sprintf("ITEM%d", index)
	}
	if len(code) > maxItemCodeLen {
		code = code[:maxItemCodeLen]
	}

	openSection(b, "ITE")
	field(b, "ITE_1", fmt.Sprintf("%d", index))
	field(b, "ITE_3", code)
	field(b, "ITE_4", money.Render(item.Quantity))
	field(b, "ITE_5", "EA")
	field(b, "ITE_6", money.Render(item.UnitPrice))
	field(b, "ITE_7", money.Render(item.Subtotal()))
	field(b, "ITE_10", SanitizeValue(item.Description))
	field(b, "ITE_11", "01") // unit price type
	field(b, "ITE_14", money.Render(item.TaxPercent))
	field(b, "ITE_15", money.Render(item.Tax()))
	field(b, "ITE_18", money.Render(item.Total()))
	closeSection(b, "ITE")
}

func openSection(b *strings.Builder, name string) {
	b.WriteByte('(')
	b.WriteString(name)
	b.WriteString(")\n")
}

func closeSection(b *strings.Builder, name string) {
	b.WriteString("(/")
	b.WriteString(name)
	b.WriteString(")\n")
}

func field(b *strings.Builder, code, value string) {
	b.WriteString(code)
	b.WriteByte(fieldSeparator)
	b.WriteString(value)
	b.WriteByte(fieldTerminator)
	b.WriteByte('\n')
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
