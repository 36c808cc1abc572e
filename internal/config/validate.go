package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "warehouse.kind",
// "datasets[1].transform[0].options.type").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownWarehouseKinds = map[string]struct{}{
		"sqlite": {}, "postgres": {}, "mssql": {}, "mysql": {}, "snowflake": {},
	}
	knownMetricsBackends = map[string]struct{}{
		"": {}, "none": {}, "pushgateway": {}, "datadog": {},
	}
	knownLogFormats = map[string]struct{}{
		"": {}, "text": {}, "json": {},
	}
	knownLogLevels = map[string]struct{}{
		"": {}, "trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}, "fatal": {}, "panic": {}, "disabled": {},
	}
	knownTransformKinds = map[string]struct{}{
		"cast": {}, "normalize": {}, "coalesce": {}, "derive": {}, "filter": {}, "stamp_load_time": {},
	}
)

// ValidateConfig performs static validation of c. It does not mutate c.
func ValidateConfig(c Config) []Issue {
	var issues []Issue
	issues = append(issues, validateWarehouse(c.Warehouse)...)
	issues = append(issues, validateAudit(c.Audit)...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	issues = append(issues, validateBronze(c.Bronze)...)
	issues = append(issues, validateDatasets(c.Datasets)...)
	return issues
}

func validateWarehouse(w Warehouse) []Issue {
	var issues []Issue
	if strings.TrimSpace(w.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.kind",
			Message:  "warehouse.kind must not be empty",
		})
	}
	if _, ok := knownWarehouseKinds[w.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "warehouse.kind",
			Message:  fmt.Sprintf("unknown warehouse kind %q; ensure a matching backend is registered", w.Kind),
		})
	}
	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.dsn",
			Message:  "warehouse.dsn must not be empty",
		})
	}
	if n := len(strings.Split(w.Namespace, ".")); w.Namespace != "" && n > 2 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.namespace",
			Message:  fmt.Sprintf("namespace %q has %d parts; expected <database>.<schema> or <schema>", w.Namespace, n),
		})
	}
	return issues
}

func validateAudit(a Audit) []Issue {
	var issues []Issue
	if strings.TrimSpace(a.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "audit.table",
			Message:  "audit.table must not be empty",
		})
	}
	if strings.TrimSpace(a.ProcessName) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "audit.process_name",
			Message:  "audit.process_name is empty; audit records will carry an empty PROCESS_NAME",
		})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.Parallelism < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.parallelism",
			Message:  "parallelism must not be negative",
		})
	}
	if r.StepTimeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.step_timeout",
			Message:  "step_timeout must not be negative",
		})
	} else if r.StepTimeout == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.step_timeout",
			Message:  "step_timeout is zero; warehouse calls will not be bounded",
		})
	}
	return issues
}

func validateLog(l Log) []Issue {
	var issues []Issue
	if _, ok := knownLogLevels[strings.ToLower(l.Level)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q", l.Level),
		})
	}
	if _, ok := knownLogFormats[l.Format]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.format",
			Message:  fmt.Sprintf("unknown log format %q; expected text or json", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	if _, ok := knownMetricsBackends[m.Backend]; !ok {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q", m.Backend),
		})
	}
	switch m.Backend {
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is empty; the statsd client falls back to DD_AGENT_HOST",
			})
		}
	}
	return issues
}

func validateBronze(b Bronze) []Issue {
	var issues []Issue
	seen := map[string]int{}
	for i, s := range b.Sources {
		base := fmt.Sprintf("bronze.sources[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".name", Message: "source name must not be empty"})
		} else if j, dup := seen[s.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  fmt.Sprintf("duplicate source name %q (also bronze.sources[%d])", s.Name, j),
			})
		} else {
			seen[s.Name] = i
		}
		if strings.TrimSpace(s.URI) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".uri", Message: "source uri must not be empty"})
		}
		if s.Parquet == "" && s.Table == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base,
				Message:  "source has neither parquet nor table; nothing would be written",
			})
		}
		switch s.Mode {
		case "", "replace", "append":
		default:
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".mode", Message: fmt.Sprintf("unknown mode %q (want replace or append)", s.Mode)})
		}
		if s.Mode == "append" && s.Table == "" {
			issues = append(issues, Issue{Severity: SeverityWarning, Path: base + ".mode", Message: "append mode has no effect without a table"})
		}
		if s.BatchSize < 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".batch_size", Message: "batch_size must be >= 0"})
		}
		if len([]rune(s.Comma)) > 1 {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".comma", Message: "comma must be a single character"})
		}
	}
	return issues
}

func validateDatasets(ds []Dataset) []Issue {
	var issues []Issue
	seen := map[string]int{}
	for i, d := range ds {
		base := fmt.Sprintf("datasets[%d]", i)
		name := strings.ToUpper(strings.TrimSpace(d.Name))
		if name == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".name", Message: "dataset name must not be empty"})
		} else if j, dup := seen[name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  fmt.Sprintf("duplicate dataset %q (also datasets[%d])", name, j),
			})
		} else {
			seen[name] = i
		}
		if strings.TrimSpace(d.Input) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".input", Message: "input table must not be empty"})
		}
		if strings.TrimSpace(d.Output) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".output", Message: "output table must not be empty"})
		}
		if d.Input != "" && strings.EqualFold(d.Input, d.Output) {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".output", Message: "output must differ from input"})
		}
		issues = append(issues, validateTransforms(base+".transform", d.Transform)...)
	}
	return issues
}

func validateTransforms(base string, ts []Transform) []Issue {
	var issues []Issue
	if len(ts) == 0 {
		return append(issues, Issue{
			Severity: SeverityWarning,
			Path:     base,
			Message:  "no transforms configured; input rows will be copied as-is",
		})
	}
	stamped := false
	for i, t := range ts {
		path := fmt.Sprintf("%s[%d]", base, i)
		if strings.TrimSpace(t.Kind) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".kind", Message: "transform kind must not be empty"})
			continue
		}
		if _, ok := knownTransformKinds[t.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".kind",
				Message:  fmt.Sprintf("unknown transform kind %q", t.Kind),
			})
			continue
		}
		hasColumn := t.Options.String("column", "") != "" || len(t.Options.StringSlice("columns")) > 0
		switch t.Kind {
		case "cast":
			if !hasColumn {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.column", Message: "cast requires column or columns"})
			}
			if t.Options.String("type", "") == "" {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.type", Message: "cast requires a target type"})
			}
		case "normalize":
			if !hasColumn {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.column", Message: "normalize requires column or columns"})
			}
			if t.Options.String("fn", "") == "" && len(t.Options.StringSlice("fns")) == 0 {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.fns", Message: "normalize requires fn or fns"})
			}
		case "coalesce":
			if !hasColumn {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.column", Message: "coalesce requires column or columns"})
			}
			if t.Options.Any("value") == nil {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.value", Message: "coalesce requires a non-null value"})
			}
		case "derive":
			if t.Options.String("column", "") == "" {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.column", Message: "derive requires column"})
			}
			if t.Options.String("expr", "") == "" {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options.expr", Message: "derive requires expr"})
			}
		case "filter":
			if len(t.Options.StringSlice("not_null")) == 0 && t.Options.String("expr", "") == "" {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options", Message: "filter requires not_null or expr"})
			}
		case "stamp_load_time":
			stamped = true
		}
	}
	if !stamped {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     base,
			Message:  "no stamp_load_time rule; the output will carry no load timestamp",
		})
	}
	return issues
}
