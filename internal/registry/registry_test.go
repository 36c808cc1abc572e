package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviation/internal/config"
	"aviation/internal/storage"
	"aviation/internal/table"
	"aviation/internal/transformer"
)

func TestBuiltinDefinitions(t *testing.T) {
	r := Builtin("aviation_project.airlines")
	assert.Equal(t, []string{Airlines, Airports, FlightsSample}, r.Names())

	tests := []struct {
		name   string
		input  string
		output string
		step   string
		rules  int
	}{
		{Airlines, "aviation_project.airlines.BRONZE_AIRLINES_RAW", "aviation_project.airlines.SILVER_AIRLINES", "CLEANING & STANDARDIZATION", 3},
		{Airports, "aviation_project.airlines.BRONZE_AIRPORTS_RAW", "aviation_project.airlines.SILVER_AIRPORTS", "CLEANING", 7},
		{FlightsSample, "aviation_project.airlines.BRONZE_FLIGHTS_SAMPLE_RAW", "aviation_project.airlines.SILVER_FLIGHTS_SAMPLE", "CLEANING", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := r.Get(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.input, d.Input.String())
			assert.Equal(t, tt.output, d.Output.String())
			assert.Equal(t, tt.step, d.Step)
			assert.Len(t, d.Rules, tt.rules)
			assert.NotEmpty(t, d.AuditMessage())
			assert.Equal(t, []string{"LOAD_TIMESTAMP"}, d.Rules.StampedColumns())
		})
	}
}

func TestBuiltinRulesCompileAgainstRawSchemas(t *testing.T) {
	raw := func(names ...string) []table.Column {
		cols := make([]table.Column, len(names))
		for i, n := range names {
			cols[i] = table.Column{Name: n, Type: table.String}
		}
		return cols
	}
	schemas := map[string][]table.Column{
		Airlines: raw("IATA_CODE", "AIRLINE"),
		Airports: raw("IATA_CODE", "AIRPORT", "CITY", "STATE", "COUNTRY", "LATITUDE", "LONGITUDE"),
		FlightsSample: raw("YEAR", "MONTH", "DAY", "DAY_OF_WEEK", "AIRLINE", "FLIGHT_NUMBER",
			"TAIL_NUMBER", "ORIGIN_AIRPORT", "DESTINATION_AIRPORT", "DEPARTURE_DELAY",
			"ARRIVAL_DELAY", "DIVERTED", "CANCELLED", "CANCELLATION_REASON", "AIR_SYSTEM_DELAY",
			"SECURITY_DELAY", "AIRLINE_DELAY", "LATE_AIRCRAFT_DELAY", "WEATHER_DELAY"),
	}

	r := Builtin("")
	for name, cols := range schemas {
		t.Run(name, func(t *testing.T) {
			d, _ := r.Get(name)
			p, err := d.Rules.Compile(cols)
			require.NoError(t, err)
			last := p.Output[len(p.Output)-1]
			if name == FlightsSample {
				assert.Equal(t, table.Column{Name: "LOAD_TIMESTAMP", Type: table.Timestamp}, last)
				assert.Contains(t, p.Output, table.Column{Name: "TOTAL_DELAY", Type: table.Int})
			} else {
				assert.Equal(t, "LOAD_TIMESTAMP", last.Name)
			}
		})
	}
}

func TestBuiltinRulesUnknownColumn(t *testing.T) {
	d, _ := Builtin("").Get(Airlines)
	_, err := d.Rules.Compile([]table.Column{{Name: "AIRLINE", Type: table.String}})

	var re *transformer.RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 0, re.Index)
	assert.ErrorIs(t, err, transformer.ErrUnknownColumn)
}

func TestNewWithConfiguredDatasets(t *testing.T) {
	r, err := New("aviation_project.airlines", []config.Dataset{
		{
			Name:   "ROUTES",
			Input:  "BRONZE_ROUTES_RAW",
			Output: "analytics.SILVER_ROUTES",
			Transform: []config.Transform{
				{Kind: "normalize", Options: config.Options{"columns": []any{"ORIGIN", "DEST"}, "fn": "upper"}},
				{Kind: "stamp_load_time"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{Airlines, Airports, FlightsSample, "ROUTES"}, r.Names())

	d, ok := r.Get("ROUTES")
	require.True(t, ok)
	assert.Equal(t, "CLEANING", d.Step)
	assert.Equal(t, storage.TableID{Database: "aviation_project", Schema: "airlines", Name: "BRONZE_ROUTES_RAW"}, d.Input)
	assert.Equal(t, storage.TableID{Schema: "analytics", Name: "SILVER_ROUTES"}, d.Output)
	assert.Len(t, d.Rules, 3)
	assert.Equal(t, "normalize(ORIGIN, upper); normalize(DEST, upper); stamp_load_time(LOAD_TIMESTAMP)", d.AuditMessage())
}

func TestNewOverridesBuiltin(t *testing.T) {
	r, err := New("", []config.Dataset{{
		Name:      Airlines,
		Step:      "CUSTOM",
		Input:     "RAW_A",
		Output:    "SILVER_A",
		Transform: []config.Transform{{Kind: "stamp_load_time"}},
	}})
	require.NoError(t, err)
	d, _ := r.Get(Airlines)
	assert.Equal(t, "CUSTOM", d.Step)
	assert.Equal(t, "RAW_A", d.Input.String())
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		ds   config.Dataset
	}{
		{"missing name", config.Dataset{Input: "a", Output: "b"}},
		{"bad input", config.Dataset{Name: "X", Input: "", Output: "b"}},
		{"bad output", config.Dataset{Name: "X", Input: "a", Output: "a.b.c.d"}},
		{"unknown kind", config.Dataset{Name: "X", Input: "a", Output: "b", Transform: []config.Transform{{Kind: "pivot"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("", []config.Dataset{tt.ds})
			require.Error(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	r := Builtin("")
	defs, err := r.Select(FlightsSample, Airlines)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, FlightsSample, defs[0].Dataset)
	assert.Equal(t, Airlines, defs[1].Dataset)

	_, err = r.Select("AIRLINES", "NOPE", "ALSO_NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE, ALSO_NOPE")

	assert.Len(t, r.All(), 3)
}
