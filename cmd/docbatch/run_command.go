package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docbatch/internal/ledger"
	"docbatch/internal/logging"
	"docbatch/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process this worker's partition of the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForRun(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			leaseService, _ := newLeaseService(cfg)
			driver, err := workflow.NewDriver(cfg, workflow.Dependencies{
				Store:     newBlobStore(),
				Lease:     leaseService,
				Inference: newInferenceClient(cfg),
				Ledger:    store,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			summary, err := driver.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Partition %d/%d: %s\n", cfg.Job.PartIndex+1, cfg.Job.NumParts, summary)
			return nil
		},
	}
}
