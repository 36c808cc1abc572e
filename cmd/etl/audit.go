package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect or bootstrap the audit table",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent audit records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}
			al, err := a.auditLogger(repo)
			if err != nil {
				return err
			}
			recs, err := al.List(ctx, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, len(recs))
			for i, r := range recs {
				rows[i] = []string{
					r.LogTime.UTC().Format(time.RFC3339),
					r.ProcessName,
					r.StepName,
					r.DatasetName,
					strconv.FormatInt(r.RowCountBefore, 10),
					strconv.FormatInt(r.RowCountAfter, 10),
					string(r.Status),
					truncate(r.Message, 60),
				}
			}
			printTable(a.stdout, []string{"LOG_TIME", "PROCESS", "STEP", "DATASET", "BEFORE", "AFTER", "STATUS", "MESSAGE"}, rows)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "max records (0 for all)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the audit table when it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}
			al, err := a.auditLogger(repo)
			if err != nil {
				return err
			}
			if err := al.EnsureTable(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "audit table %s ready\n", al.Table())
			return nil
		},
	}

	cmd.AddCommand(list, initCmd)
	return cmd
}
