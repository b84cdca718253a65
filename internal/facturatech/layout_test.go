package facturatech_test

import (
	"strings"
	"testing"
	"time"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallermazos/invoice-gateway/internal/facturatech"
	"github.com/tallermazos/invoice-gateway/internal/model"
)

func sampleInput() facturatech.LayoutInput {
	issued := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	items := []model.LineItem{
		{Code: "MO-001", Description: "Mano de obra: cambio de pastillas", Quantity: dec.NewFromInt(1), UnitPrice: dec.NewFromInt(100000), TaxPercent: dec.NewFromInt(19)},
		{Description: "Pastillas de freno delanteras", Quantity: dec.NewFromInt(1), UnitPrice: dec.NewFromInt(100000), TaxPercent: dec.NewFromInt(19)},
	}
	return facturatech.LayoutInput{
		Header: model.InvoiceHeader{
			IssuerNIT:   "901234567",
			Prefix:      "SETT",
			Sequence:    42,
			IssuedAt:    issued,
			DueDate:     issued.AddDate(0, 0, 30),
			Currency:    "COP",
			PaymentForm: "1",
			Reference:   "Orden; de trabajo: 118",
		},
		Issuer: model.Party{
			PersonType:           model.PersonJuridical,
			DocumentType:         "NIT",
			DocumentNumber:       "901234567",
			CheckDigit:           "8",
			LegalName:            "MI TALLER MAZOS CAR SAS",
			TradeName:            "Taller Mazos",
			Address:              "Av 5 # 10-20",
			City:                 "Cúcuta",
			CityCode:             "54001",
			Department:           "Norte de Santander",
			DepartmentCode:       "54",
			Country:              "CO",
			Phone:                "6075551234",
			FiscalResponsibility: "O-48",
			TaxRegime:            "48",
		},
		Acquirer: model.Party{
			PersonType:     model.PersonNatural,
			DocumentType:   "CC",
			DocumentNumber: "1090123456",
			LegalName:      "José Pérez",
			Phone:          "3001234567",
			Email:          "jose@example.com",
		},
		Items:  items,
		Totals: model.ComputeTotals(items),
	}
}

func TestEncodeLayoutDeterministic(t *testing.T) {
	in := sampleInput()
	first := facturatech.EncodeLayout(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, facturatech.EncodeLayout(in))
	}
}

func TestEncodeLayoutAmounts(t *testing.T) {
	out := facturatech.EncodeLayout(sampleInput())

	// Two items of 100000 at 19% VAT
	assert.Contains(t, out, "ENC_15:2;")
	assert.Contains(t, out, "TOT_1:200000.00;")
	assert.Contains(t, out, "TOT_3:238000.00;")
	assert.Contains(t, out, "TOT_7:38000.00;")
	assert.Contains(t, out, "ITE_7:100000.00;")
	assert.Contains(t, out, "ITE_15:19000.00;")
	assert.Contains(t, out, "ITE_18:119000.00;")
	assert.Equal(t, 2, strings.Count(out, "(ITE)"))
	assert.Equal(t, 2, strings.Count(out, "(/ITE)"))
}

func TestEncodeLayoutStructure(t *testing.T) {
	out := facturatech.EncodeLayout(sampleInput())
	lines := strings.Split(out, "\n")

	require.Equal(t, "[FACTURA]", lines[0])
	assert.Equal(t, "(ENC)", lines[1])

	// Every data line is FIELD:value; free-text values carry no stray
	// separators (ENC_8 is the issue time, whose colons are literal)
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "(") || line == "" {
			continue
		}
		require.Truef(t, strings.HasSuffix(line, ";"), "line %q lacks terminator", line)
		require.Contains(t, line, ":")
		if !strings.HasPrefix(line, "ENC_8") {
			require.Equalf(t, 1, strings.Count(line, ":"), "line %q has embedded separator", line)
		}
		require.Equalf(t, 1, strings.Count(line, ";"), "line %q has embedded terminator", line)
	}
}

func TestEncodeLayoutHeaderFields(t *testing.T) {
	out := facturatech.EncodeLayout(sampleInput())

	assert.Contains(t, out, "ENC_1:INVOIC;")
	assert.Contains(t, out, "ENC_2:901234567;")
	assert.Contains(t, out, "ENC_3:42;")
	assert.Contains(t, out, "ENC_7:2026-03-14;")
	assert.Contains(t, out, "ENC_8:10:30:00;") // time keeps its own colons
	assert.Contains(t, out, "ENC_10:COP;")
	// Reference is sanitized: separators replaced, never removed
	assert.Contains(t, out, "ENC_22:Orden, de trabajo- 118;")
}

func TestEncodeLayoutPartyCoding(t *testing.T) {
	out := facturatech.EncodeLayout(sampleInput())

	assert.Contains(t, out, "EMI_3:31;")
	assert.Contains(t, out, "ADQ_3:13;") // CC
	assert.Contains(t, out, "ADQ_23:R-99-PN;")
	assert.Contains(t, out, "ADQ_25:49;")
	// Acquirer location defaults to the issuer's
	assert.Contains(t, out, "ADQ_14:54001;")
	// Accents are stripped from free text
	assert.Contains(t, out, "ADQ_6:Jose Perez;")
	assert.Contains(t, out, "EMI_12:Cucuta;")
}

func TestEncodeLayoutItemCodeDefaults(t *testing.T) {
	in := sampleInput()
	in.Items[1].Code = ""
	out := facturatech.EncodeLayout(in)
	assert.Contains(t, out, "ITE_3:ITEM2;")

	in.Items[0].Code = strings.Repeat("X", 40)
	out = facturatech.EncodeLayout(in)
	assert.Contains(t, out, "ITE_3:"+strings.Repeat("X", 20)+";")
}

func TestEncodeLayoutUnknownDocumentType(t *testing.T) {
	in := sampleInput()
	in.Acquirer.DocumentType = "PASAPORTE-X"
	out := facturatech.EncodeLayout(in)
	assert.Contains(t, out, "ADQ_3:13;")
}
