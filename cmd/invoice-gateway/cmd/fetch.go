package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallermazos/invoice-gateway/internal/facturatech"
)

var fetchOutput string

// fetchKinds maps command arguments to provider resources and the file
// extension used when saving binary artifacts.
var fetchKinds = map[string]struct {
	kind   facturatech.ResourceKind
	ext    string
	binary bool
}{
	"pdf":  {facturatech.ResourcePDF, ".pdf", true},
	"xml":  {facturatech.ResourceXML, ".xml", true},
	"cufe": {facturatech.ResourceCUFE, "", false},
	"qr":   {facturatech.ResourceQRImage, ".png", true},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <pdf|xml|cufe|qr> <prefix> <folio>",
	Short: "Download an artifact of an accepted invoice",
	Long: `Fetch a resource from the provider for an accepted invoice.

pdf, xml and qr are written to a file; cufe is printed to stdout.`,
	Args: cobra.ExactArgs(3),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Output file (default FE-<prefix><folio>.<ext>)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	spec, ok := fetchKinds[args[0]]
	if !ok {
		return fmt.Errorf("unknown resource %q, use pdf, xml, cufe or qr", args[0])
	}
	prefix, folio := args[1], args[2]

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	res := newProvider(cfg, log).FetchResource(ctx, spec.kind, prefix, folio)
	if !res.OK() {
		return fmt.Errorf("fetch failed: %s", res.Message)
	}

	if !spec.binary {
		fmt.Println(res.Payload)
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(res.Payload)
	if err != nil {
		return fmt.Errorf("decoding resource payload: %w", err)
	}

	output := fetchOutput
	if output == "" {
		output = fmt.Sprintf("FE-%s%s%s", prefix, folio, spec.ext)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("Saved %s (%d bytes)\n", output, len(data))
	return nil
}
