package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"aviation/internal/job"
)

func newSilverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "silver",
		Short: "Silver layer cleaning jobs",
	}
	cmd.AddCommand(newSilverRunCmd(a))
	return cmd
}

func newSilverRunCmd(a *app) *cobra.Command {
	var (
		all         bool
		parallelism int
	)
	cmd := &cobra.Command{
		Use:   "run [DATASET...]",
		Short: "Run the named datasets (or --all) and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("name one or more datasets or pass --all")
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}
			defs := reg.All()
			if !all {
				if defs, err = reg.Select(args...); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}
			al, err := a.auditLogger(repo)
			if err != nil {
				return err
			}
			// The jobs still run when the audit table cannot be created; each
			// failed insert is then reported on its result.
			if err := al.EnsureTable(ctx); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("table", al.Table().String()).Msg("audit table unavailable")
			}

			if !cmd.Flags().Changed("parallelism") {
				parallelism = a.cfg.Runtime.Parallelism
			}
			runner := &job.Runner{Repo: repo, Audit: al, StepTimeout: a.cfg.Runtime.StepTimeout}
			results, runErr := runner.RunAll(ctx, defs, parallelism)
			printResults(a, results)
			if runErr != nil || job.Failed(results) {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run every registered dataset")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "max concurrent jobs (default runtime.parallelism)")
	return cmd
}

func printResults(a *app, results []*job.Result) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		var total time.Duration
		for _, d := range r.Durations {
			total += d
		}
		msg := ""
		switch {
		case r.Err != nil:
			msg = r.Err.Error()
			if job.IsTimeout(r.Err) {
				msg = "timeout: " + msg
			}
		case r.AuditErr != nil:
			msg = "audit: " + r.AuditErr.Error()
		}
		rows = append(rows, []string{
			r.Dataset,
			string(r.State),
			strconv.FormatInt(r.RowCountBefore, 10),
			strconv.FormatInt(r.RowCountAfter, 10),
			strconv.FormatInt(r.Dropped(), 10),
			total.Truncate(time.Millisecond).String(),
			fmt.Sprintf("%016x", r.Fingerprint),
			truncate(msg, 80),
		})
	}
	printTable(a.stdout, []string{"DATASET", "STATE", "BEFORE", "AFTER", "DROPPED", "DURATION", "FINGERPRINT", "ERROR"}, rows)
}
