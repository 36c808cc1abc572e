package registry

import (
	"aviation/internal/job"
	"aviation/internal/storage"
	"aviation/internal/table"
	"aviation/internal/transformer"
	"aviation/internal/transformer/builtin"
)

// Built-in dataset names.
const (
	Airlines      = "AIRLINES"
	Airports      = "AIRPORTS"
	FlightsSample = "FLIGHTS_SAMPLE"
)

func upper(col string) builtin.Normalize {
	return builtin.Normalize{Column: col, Funcs: []string{builtin.FnUpper}}
}

func castInt(col string) builtin.Cast { return builtin.Cast{Column: col, To: table.Int} }

// builtinDefinitions returns the curated Silver jobs with unqualified table
// ids.
func builtinDefinitions() []job.Definition {
	stamp := builtin.StampLoadTime{Column: builtin.DefaultLoadTimeColumn}

	return []job.Definition{
		{
			Dataset: Airlines,
			Step:    "CLEANING & STANDARDIZATION",
			Message: "Uppercasing codes, trimming names, adding load timestamp",
			Input:   storage.TableID{Name: "BRONZE_AIRLINES_RAW"},
			Output:  storage.TableID{Name: "SILVER_AIRLINES"},
			Rules: transformer.RuleSet{
				builtin.Normalize{Column: "IATA_CODE", Funcs: []string{builtin.FnTrim, builtin.FnUpper}},
				builtin.Normalize{Column: "AIRLINE", Funcs: []string{builtin.FnTrim}},
				stamp,
			},
		},
		{
			Dataset: Airports,
			Step:    "CLEANING",
			Message: "Basic cleaning: CITY initcap, STATE/COUNTRY uppercased, lat/lon cast, null rows removed",
			Input:   storage.TableID{Name: "BRONZE_AIRPORTS_RAW"},
			Output:  storage.TableID{Name: "SILVER_AIRPORTS"},
			Rules: transformer.RuleSet{
				builtin.Normalize{Column: "CITY", Funcs: []string{builtin.FnInitcap}},
				upper("STATE"),
				upper("COUNTRY"),
				builtin.Cast{Column: "LATITUDE", To: table.Float},
				builtin.Cast{Column: "LONGITUDE", To: table.Float},
				stamp,
				builtin.NotNull{Columns: []string{"IATA_CODE", "CITY", "STATE"}},
			},
		},
		{
			Dataset: FlightsSample,
			Step:    "CLEANING",
			Message: "Cleaned raw data, computed TOTAL_DELAY",
			Input:   storage.TableID{Name: "BRONZE_FLIGHTS_SAMPLE_RAW"},
			Output:  storage.TableID{Name: "SILVER_FLIGHTS_SAMPLE"},
			Rules: transformer.RuleSet{
				castInt("YEAR"),
				castInt("MONTH"),
				castInt("DAY"),
				castInt("DEPARTURE_DELAY"),
				castInt("ARRIVAL_DELAY"),
				castInt("CANCELLED"),
				castInt("DIVERTED"),

				upper("AIRLINE"),
				upper("ORIGIN_AIRPORT"),
				upper("DESTINATION_AIRPORT"),

				builtin.Coalesce{Column: "CANCELLATION_REASON", Default: "NONE"},
				builtin.Coalesce{Column: "AIR_SYSTEM_DELAY", Default: int64(0)},
				builtin.Coalesce{Column: "SECURITY_DELAY", Default: int64(0)},
				builtin.Coalesce{Column: "AIRLINE_DELAY", Default: int64(0)},
				builtin.Coalesce{Column: "LATE_AIRCRAFT_DELAY", Default: int64(0)},
				builtin.Coalesce{Column: "WEATHER_DELAY", Default: int64(0)},

				builtin.Derive{Column: "TOTAL_DELAY", Expr: "DEPARTURE_DELAY + ARRIVAL_DELAY", Type: table.Int},
				stamp,
				builtin.NotNull{Columns: []string{"AIRLINE", "ORIGIN_AIRPORT", "DESTINATION_AIRPORT"}},
			},
		},
	}
}
