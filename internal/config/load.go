package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	gostr "github.com/xhit/go-str2duration/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AVIATION"

// Defaults applied before the config file and environment are read.
const (
	DefaultWarehouseKind = "sqlite"
	DefaultWarehouseDSN  = "file:aviation.db"
	DefaultNamespace     = "aviation_project.airlines"
	DefaultAuditTable    = "PROJECT_AUDIT_LOGS"
	DefaultProcessName   = "SILVER_ETL"
	DefaultStepTimeout   = 5 * time.Minute
	DefaultMetricsJob    = "aviation_etl"
)

// SetDefaults registers the default value of every known key on v. Keys must
// be known to viper for AutomaticEnv to apply during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("warehouse.kind", DefaultWarehouseKind)
	v.SetDefault("warehouse.dsn", DefaultWarehouseDSN)
	v.SetDefault("warehouse.namespace", DefaultNamespace)
	v.SetDefault("audit.table", DefaultAuditTable)
	v.SetDefault("audit.process_name", DefaultProcessName)
	v.SetDefault("runtime.parallelism", 0)
	v.SetDefault("runtime.step_timeout", DefaultStepTimeout.String())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.job", DefaultMetricsJob)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")
	v.SetDefault("metrics.namespace", "")
	v.SetDefault("metrics.tags", []string{})
}

// NewViper returns a viper instance with defaults and environment binding.
// When file is non-empty it is read as the config file.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads file (optional) plus environment overrides into a Config.
func Load(file string) (*Config, error) {
	v, err := NewViper(file)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode unmarshals the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	decoderCfg := func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			HumanDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
	if err := v.Unmarshal(&cfg, decoderCfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// HumanDurationHookFunc decodes strings such as "90s", "5m" or "1d2h" into a
// time.Duration. Bare integers are taken as seconds.
func HumanDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch f.Kind() {
		case reflect.String:
			s := strings.TrimSpace(data.(string))
			if s == "" {
				return time.Duration(0), nil
			}
			if d, err := gostr.ParseDuration(s); err == nil {
				return d, nil
			}
			var secs int64
			if _, err := fmt.Sscanf(s, "%d", &secs); err == nil && fmt.Sprint(secs) == s {
				return time.Duration(secs) * time.Second, nil
			}
			return nil, fmt.Errorf("invalid duration %q", s)
		case reflect.Int, reflect.Int64, reflect.Int32:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.Float64, reflect.Float32:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		}
		return data, nil
	}
}
