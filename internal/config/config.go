// Package config defines the configuration model of the pipeline and the
// helpers used to load and lint it.
//
// A configuration file (YAML or JSON) looks like:
//
//	warehouse:
//	  kind: sqlite
//	  dsn: file:aviation.db
//	  namespace: aviation_project.airlines
//	audit:
//	  table: PROJECT_AUDIT_LOGS
//	runtime:
//	  parallelism: 3
//	  step_timeout: 5m
//	datasets:
//	  - name: AIRCRAFT
//	    input: BRONZE_AIRCRAFT_RAW
//	    output: SILVER_AIRCRAFT
//	    transform:
//	      - { kind: normalize, options: { column: TAIL_NUMBER, fns: [trim, upper] } }
//	      - { kind: filter, options: { not_null: [TAIL_NUMBER] } }
//
// Every key can be overridden from the environment with the AVIATION_ prefix,
// e.g. AVIATION_WAREHOUSE_DSN.
package config

import (
	"encoding/json"
	"time"
)

// Config is the top-level configuration.
type Config struct {
	Warehouse Warehouse `mapstructure:"warehouse" json:"warehouse"`
	Audit     Audit     `mapstructure:"audit" json:"audit"`
	Runtime   Runtime   `mapstructure:"runtime" json:"runtime"`
	Log       Log       `mapstructure:"log" json:"log"`
	Metrics   Metrics   `mapstructure:"metrics" json:"metrics"`
	Bronze    Bronze    `mapstructure:"bronze" json:"bronze"`

	// Datasets declares Silver datasets in addition to the built-in ones. An
	// entry with the name of a built-in dataset replaces it.
	Datasets []Dataset `mapstructure:"datasets" json:"datasets"`
}

// Warehouse selects the storage backend holding raw, curated and audit tables.
type Warehouse struct {
	// Kind is a registered backend: sqlite, postgres, mssql, mysql, snowflake.
	Kind string `mapstructure:"kind" json:"kind"`
	DSN  string `mapstructure:"dsn" json:"dsn"`

	// Namespace is the "<namespace>.<schema>" prefix applied to dataset table
	// names that are not already qualified.
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

// Audit configures the audit table.
type Audit struct {
	Table       string `mapstructure:"table" json:"table"`
	ProcessName string `mapstructure:"process_name" json:"process_name"`
}

// Runtime controls job execution.
type Runtime struct {
	// Parallelism bounds how many dataset jobs run at once. 0 means one per
	// dataset.
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`

	// StepTimeout bounds each warehouse call (read, write, audit insert).
	StepTimeout time.Duration `mapstructure:"step_timeout" json:"step_timeout"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of "", "none", "pushgateway", "datadog".
	Backend        string   `mapstructure:"backend" json:"backend"`
	Job            string   `mapstructure:"job" json:"job"`
	PushgatewayURL string   `mapstructure:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string   `mapstructure:"datadog_addr" json:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace" json:"namespace"`
	Tags           []string `mapstructure:"tags" json:"tags"`
}

// Bronze lists the raw files landed by the ingestion command.
type Bronze struct {
	Sources []BronzeSource `mapstructure:"sources" json:"sources"`
}

// BronzeSource is one raw CSV file and where to land it.
type BronzeSource struct {
	Name string `mapstructure:"name" json:"name"`

	// URI is a local path, s3://bucket/key or http(s) URL. A .gz suffix is
	// decompressed.
	URI string `mapstructure:"uri" json:"uri"`

	// Comma is the field delimiter; defaults to ",".
	Comma string `mapstructure:"comma" json:"comma"`

	// Parquet, when set, is the local path or s3:// URI of the Parquet file
	// to write.
	Parquet string `mapstructure:"parquet" json:"parquet"`

	// Table, when set, is the raw warehouse table to land into.
	Table string `mapstructure:"table" json:"table"`

	// Mode is "replace" (default) or "append" for the warehouse table.
	Mode string `mapstructure:"mode" json:"mode"`

	// BatchSize bounds the rows per insert in append mode; 0 means 5000.
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`

	// Retries is the number of extra attempts for http(s) downloads.
	Retries int `mapstructure:"retries" json:"retries"`

	// S3 carries connection settings for s3:// URIs.
	S3 S3 `mapstructure:"s3" json:"s3"`
}

// S3 holds S3 client settings.
type S3 struct {
	Region          string `mapstructure:"region" json:"region"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" json:"force_path_style"`
}

// Dataset declares one Silver job.
type Dataset struct {
	Name    string `mapstructure:"name" json:"name" yaml:"name"`
	Step    string `mapstructure:"step" json:"step" yaml:"step,omitempty"`
	Message string `mapstructure:"message" json:"message" yaml:"message,omitempty"`
	Input   string `mapstructure:"input" json:"input" yaml:"input"`
	Output  string `mapstructure:"output" json:"output" yaml:"output"`

	// Transform lists the ordered rules of the dataset.
	Transform []Transform `mapstructure:"transform" json:"transform" yaml:"transform"`
}

// Transform defines a single rule. The options shape is defined by the rule
// kind (see transformer/builtin).
type Transform struct {
	Kind    string  `mapstructure:"kind" json:"kind" yaml:"kind"`
	Options Options `mapstructure:"options" json:"options" yaml:"options,omitempty,flow"`
}

// Options is a small helper to fetch typed values from free-form option maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML numbers as int, so both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Non-string elements are skipped. Returns nil when the key is missing.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON decodes a missing or null "options" object to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
