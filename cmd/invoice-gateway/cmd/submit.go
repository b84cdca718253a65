package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallermazos/invoice-gateway/internal/facturatech"
	"github.com/tallermazos/invoice-gateway/internal/model"
	"github.com/tallermazos/invoice-gateway/internal/money"
	"github.com/tallermazos/invoice-gateway/internal/numbering"
)

var (
	submitDryRun bool
	submitFolio  int64
)

// submitFile is the JSON document the submit command reads
type submitFile struct {
	Referencia string `json:"referencia"`
	Cliente    struct {
		TipoPersona     string `json:"tipoPersona"`
		TipoDocumento   string `json:"tipoDocumento"`
		NumeroDocumento string `json:"numeroDocumento"`
		RazonSocial     string `json:"razonSocial"`
		Direccion       string `json:"direccion"`
		Ciudad          string `json:"ciudad"`
		Telefono        string `json:"telefono"`
		Email           string `json:"email"`
	} `json:"cliente"`
	Items []struct {
		Codigo         string   `json:"codigo"`
		Descripcion    string   `json:"descripcion"`
		Cantidad       float64  `json:"cantidad"`
		PrecioUnitario float64  `json:"precioUnitario"`
		PorcentajeIVA  *float64 `json:"porcentajeIva"`
	} `json:"items"`
}

var submitCmd = &cobra.Command{
	Use:   "submit <factura.json>",
	Short: "Submit an invoice to the provider from a JSON file",
	Long: `Read an invoice description from a JSON file, encode it as a
flat-file layout and upload it to Facturatech.

With --dry-run the layout is printed instead of submitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "Print the layout without submitting")
	submitCmd.Flags().Int64Var(&submitFolio, "folio", 0, "Force an invoice number instead of deriving one")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	var doc submitFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}
	if len(doc.Items) == 0 {
		return fmt.Errorf("%s contains no items", args[0])
	}

	items := make([]model.LineItem, 0, len(doc.Items))
	for i, it := range doc.Items {
		if it.Cantidad <= 0 || it.PrecioUnitario <= 0 {
			return fmt.Errorf("item %d: cantidad and precioUnitario must be positive", i+1)
		}
		pct := 19.0
		if it.PorcentajeIVA != nil {
			pct = *it.PorcentajeIVA
		}
		items = append(items, model.LineItem{
			Index:       i + 1,
			Code:        it.Codigo,
			Description: it.Descripcion,
			Quantity:    money.FromFloat(it.Cantidad),
			UnitPrice:   money.FromFloat(it.PrecioUnitario),
			TaxPercent:  money.FromFloat(pct),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sequence := submitFolio
	if sequence == 0 {
		var seq numbering.Sequencer
		if submitDryRun {
			seq = numbering.NewMemorySequencer(cfg.Numbering.RangeFrom)
		} else {
			seq = numbering.NewStoreSequencer(newStore(cfg, log), cfg.Numbering.RangeFrom, cfg.Numbering.RangeTo)
		}
		sequence, err = seq.Next(ctx, cfg.Numbering.Prefix)
		if err != nil {
			return err
		}
	}

	acquirer := model.Party{
		PersonType:     model.PersonType(doc.Cliente.TipoPersona),
		DocumentType:   doc.Cliente.TipoDocumento,
		DocumentNumber: doc.Cliente.NumeroDocumento,
		LegalName:      doc.Cliente.RazonSocial,
		Address:        doc.Cliente.Direccion,
		City:           doc.Cliente.Ciudad,
		Phone:          doc.Cliente.Telefono,
		Email:          doc.Cliente.Email,
	}

	now := time.Now()
	layout := facturatech.EncodeLayout(facturatech.LayoutInput{
		Header: model.InvoiceHeader{
			IssuerNIT:   cfg.Issuer.NIT,
			Prefix:      cfg.Numbering.Prefix,
			Sequence:    sequence,
			IssuedAt:    now,
			DueDate:     now.AddDate(0, 0, 30),
			Currency:    "COP",
			PaymentForm: "1",
			Reference:   doc.Referencia,
		},
		Issuer:   cfg.Issuer.Party(),
		Acquirer: acquirer,
		Items:    items,
		Totals:   model.ComputeTotals(items),
	})

	if submitDryRun {
		fmt.Println(layout)
		return nil
	}

	res := newProvider(cfg, log).UploadInvoiceLayout(ctx, layout)
	printResult(res)
	if !res.OK() {
		return fmt.Errorf("submission failed: %s", res.Message)
	}
	fmt.Printf("Invoice %s%d submitted, transaction %s\n", cfg.Numbering.Prefix, sequence, res.TransactionID)
	return nil
}

func printResult(res *model.SubmissionResult) {
	out, _ := json.MarshalIndent(map[string]string{
		"outcome":       string(res.Outcome),
		"transactionId": res.TransactionID,
		"status":        res.Status,
		"message":       res.Message,
	}, "", "  ")
	fmt.Println(string(out))
}
