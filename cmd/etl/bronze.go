package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aviation/internal/bronze"
	"aviation/internal/config"
	"aviation/internal/datasource"
	"aviation/internal/datasource/httpds"
	"aviation/internal/datasource/s3"
	"aviation/internal/parser/csv"
	"aviation/internal/probe"
	"aviation/internal/storage"
)

func newBronzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bronze",
		Short: "Bronze layer ingestion",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ingest [SOURCE...]",
		Short: "Land the configured raw files (all when none is named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := selectSources(a.cfg.Bronze.Sources, args)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return errors.New("no bronze sources configured")
			}
			ctx := cmd.Context()
			var (
				rows   [][]string
				failed bool
			)
			for _, src := range sources {
				res, err := a.ingest(ctx, src)
				row := []string{src.Name, "DONE", "0", ""}
				if res != nil {
					row[2] = strconv.FormatInt(res.Rows, 10)
				}
				if err != nil {
					failed = true
					row[1], row[3] = "FAILED", truncate(err.Error(), 80)
					log.Ctx(ctx).Error().Err(err).Str("source", src.Name).Msg("bronze ingestion failed")
				}
				rows = append(rows, row)
			}
			printTable(a.stdout, []string{"SOURCE", "STATE", "ROWS", "ERROR"}, rows)
			if failed {
				return errFailed
			}
			return nil
		},
	})
	cmd.AddCommand(newBronzeProbeCmd(a))
	return cmd
}

func newBronzeProbeCmd(a *app) *cobra.Command {
	var (
		rows  int
		name  string
		comma string
	)
	cmd := &cobra.Command{
		Use:   "probe URI",
		Short: "Sample a raw CSV and print a draft dataset declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := args[0]
			src, err := datasource.New(uri, datasource.Options{})
			if err != nil {
				return err
			}
			r := []rune(comma)
			if len(r) > 1 {
				return fmt.Errorf("--comma must be a single character")
			}
			opt := probe.Options{SampleRows: rows}
			if len(r) == 1 {
				opt.CSV = csv.Options{Comma: r[0]}
			}
			res, err := probe.Probe(cmd.Context(), src, opt)
			if err != nil {
				return err
			}
			if name == "" {
				name = probe.DatasetName(uri)
			}

			var colRows [][]string
			for _, c := range res.Columns {
				colRows = append(colRows, []string{c.Name, string(c.Type), strconv.Itoa(c.Nulls)})
			}
			printTable(a.stdout, []string{"COLUMN", "TYPE", "NULLS"}, colRows)

			doc := struct {
				Datasets []config.Dataset `yaml:"datasets"`
			}{Datasets: []config.Dataset{probe.Suggest(name, res)}}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode draft: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().IntVar(&rows, "rows", probe.DefaultSampleRows, "data lines to sample")
	cmd.Flags().StringVar(&name, "name", "", "dataset name (default derived from the file name)")
	cmd.Flags().StringVar(&comma, "comma", ",", "field delimiter")
	return cmd
}

func selectSources(all []config.BronzeSource, names []string) ([]config.BronzeSource, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]config.BronzeSource, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]config.BronzeSource, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown bronze source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func s3Config(c config.S3) s3.Config {
	return s3.Config{
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		ForcePathStyle:  c.ForcePathStyle,
	}
}

func (a *app) ingest(ctx context.Context, src config.BronzeSource) (*bronze.Result, error) {
	ds, err := datasource.New(src.URI, datasource.Options{
		S3:   s3Config(src.S3),
		HTTP: httpds.Config{MaxRetries: src.Retries},
	})
	if err != nil {
		return nil, err
	}

	var sinks []bronze.Sink
	if src.Parquet != "" {
		ps, err := bronze.NewParquetSink(src.Parquet, s3Config(src.S3))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ps)
	}
	if src.Table != "" {
		id, err := storage.ParseTableID(src.Table)
		if err != nil {
			return nil, err
		}
		repo, err := a.repository(ctx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, &bronze.WarehouseSink{
			Repo:      repo,
			Table:     storage.Qualify(id, a.cfg.Warehouse.Namespace),
			Mode:      src.Mode,
			BatchSize: src.BatchSize,
			Dataset:   src.Name,
		})
	}

	opt := bronze.Options{Name: src.Name}
	if r := []rune(src.Comma); len(r) == 1 {
		opt.Comma = r[0]
	}
	return bronze.Ingest(ctx, ds, opt, sinks...)
}
