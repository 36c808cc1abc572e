package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"aviation/internal/audit"
	"aviation/internal/config"
	"aviation/internal/metrics"
	"aviation/internal/metrics/datadog"
	"aviation/internal/metrics/prompush"
	"aviation/internal/registry"
	"aviation/internal/storage"
)

// app holds the state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	stdout  io.Writer

	repo storage.Repository
}

// setupMetrics installs the configured metrics backend.
func (a *app) setupMetrics() error {
	m := a.cfg.Metrics
	switch m.Backend {
	case "", "none":
		return nil
	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: m.Namespace, GlobalTags: m.Tags})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
	default:
		return fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}
	log.Debug().Str("backend", m.Backend).Msg("metrics enabled")
	return nil
}

// repository opens the warehouse once per invocation.
func (a *app) repository(ctx context.Context) (storage.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	w := a.cfg.Warehouse
	repo, err := storage.New(ctx, storage.Config{Kind: w.Kind, DSN: w.DSN})
	if err != nil {
		return nil, fmt.Errorf("open warehouse %s: %w", w.Kind, err)
	}
	a.repo = repo
	return repo, nil
}

func (a *app) close() {
	if a.repo != nil {
		a.repo.Close()
		a.repo = nil
	}
}

func (a *app) auditLogger(repo storage.Repository) (*audit.Logger, error) {
	id, err := storage.ParseTableID(a.cfg.Audit.Table)
	if err != nil {
		return nil, fmt.Errorf("audit.table: %w", err)
	}
	id = storage.Qualify(id, a.cfg.Warehouse.Namespace)
	return audit.NewLogger(repo, id, a.cfg.Audit.ProcessName), nil
}

func (a *app) registry() (*registry.Registry, error) {
	return registry.New(a.cfg.Warehouse.Namespace, a.cfg.Datasets)
}

// printTable renders rows with the shared CLI table style.
func printTable(w io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, n, "...")
}
