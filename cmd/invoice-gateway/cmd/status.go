package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <transactionId>",
	Short: "Query the DIAN processing state of a submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	res := newProvider(cfg, log).DocumentStatus(ctx, args[0])
	printResult(res)
	if !res.OK() {
		return fmt.Errorf("status query failed: %s", res.Message)
	}
	return nil
}
