package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docbatch/internal/partition"
	"docbatch/internal/workflow"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var showParts bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which work items a partition owns",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			assignment, err := workflow.PlanPartition(cmd.Context(), cfg, newBlobStore(), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showParts {
				rows := make([][]string, 0, cfg.Job.NumParts)
				for i := 0; i < cfg.Job.NumParts; i++ {
					rng, err := partition.Plan(assignment.Total, cfg.Job.NumParts, i)
					if err != nil {
						return err
					}
					rows = append(rows, []string{strconv.Itoa(i), rng.String(), strconv.Itoa(rng.Len())})
				}
				fmt.Fprintln(out, renderTable([]string{"Part", "Range", "Items"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
				return nil
			}

			fmt.Fprintf(out, "Partition %d/%d owns %s of %d items", assignment.PartIndex+1, assignment.NumParts, assignment.Range, assignment.Total)
			if assignment.Shuffled {
				fmt.Fprint(out, " (shuffled)")
			}
			fmt.Fprintln(out)
			if len(assignment.Items) == 0 {
				fmt.Fprintln(out, "Partition has no items")
				return nil
			}
			rows := make([][]string, 0, len(assignment.Items))
			for i, item := range assignment.Items {
				rows = append(rows, []string{strconv.Itoa(assignment.Range.Start + i), item.ID, item.SourcePath})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Item", "Source"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showParts, "parts", false, "Show the range of every partition instead of this partition's items")
	return cmd
}
