// Command etl runs the aviation pipeline: Bronze ingestion of raw CSV files
// and the Silver cleaning jobs with their audit trail.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"aviation/internal/config"
	"aviation/internal/logger"
	"aviation/internal/metrics"

	// register all backends with the storage factory.
	_ "aviation/internal/storage/all"
)

// annotationLenient marks commands that must run with an invalid logging or
// metrics configuration so that they can report it.
const annotationLenient = "lenient"

// errFailed signals that the command already reported its failure.
var errFailed = errors.New("one or more runs failed")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := root.ExecuteContext(ctx)
	if ferr := metrics.Flush(); ferr != nil {
		log.Warn().Err(ferr).Msg("metrics: flush failed")
	}
	a.close()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Aviation medallion pipeline: bronze ingestion and silver cleaning",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (yaml or json)")
	root.PersistentFlags().String("log-format", logger.FormatText, "logging format [text|json]")
	root.PersistentFlags().String("log-level", zerolog.LevelInfoValue,
		fmt.Sprintf("logging level %s|%s|%s|%s",
			zerolog.LevelDebugValue, zerolog.LevelInfoValue, zerolog.LevelWarnValue, zerolog.LevelErrorValue),
	)

	root.AddCommand(
		newSilverCmd(a),
		newBronzeCmd(a),
		newDatasetsCmd(a),
		newAuditCmd(a),
		newValidateCmd(a),
	)
	return root
}

// load reads the configuration and installs logging and metrics. Flags
// override the file and the environment.
func (a *app) load(cmd *cobra.Command) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{"log.level": "log-level", "log.format": "log-format"} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	lenient := cmd.Annotations[annotationLenient] != ""
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil && !lenient {
		return err
	}
	if lenient {
		return nil
	}
	return a.setupMetrics()
}
