package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const airlinesCSV = `IATA_CODE,AIRLINE
 ua ,  United Air Lines Inc.
AA,American Airlines Inc.
US,US Airways Inc.
`

// testEnv is a config file plus a raw CSV in a temporary directory.
type testEnv struct {
	dir string
	cfg string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "airlines.csv")
	require.NoError(t, os.WriteFile(raw, []byte(airlinesCSV), 0o644))

	cfg := fmt.Sprintf(`warehouse:
  kind: sqlite
  dsn: file:%s
  namespace: aviation_project.airlines
log:
  level: warn
bronze:
  sources:
    - name: airlines
      uri: %s
      table: BRONZE_AIRLINES_RAW
      parquet: %s
%s`, filepath.Join(dir, "warehouse.db"), raw, filepath.Join(dir, "landing", "airlines.parquet"), extra)
	path := filepath.Join(dir, "etl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &testEnv{dir: dir, cfg: path}
}

func (e *testEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", e.cfg}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBronzeThenSilver(t *testing.T) {
	e := newTestEnv(t, "")

	code, out, errOut := e.run(t, "bronze", "ingest")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "airlines")
	assert.FileExists(t, filepath.Join(e.dir, "landing", "airlines.parquet"))

	code, out, errOut = e.run(t, "silver", "run", "AIRLINES")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "AIRLINES")
	assert.Contains(t, out, "DONE")

	code, out, _ = e.run(t, "audit", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "CLEANING & STANDARDIZATION")
}

func TestSilverRunFailureExitsNonZero(t *testing.T) {
	e := newTestEnv(t, "")

	code, out, _ := e.run(t, "silver", "run", "FLIGHTS_SAMPLE")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAILED")

	code, out, _ = e.run(t, "audit", "list", "--limit", "5")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "FAILURE")
}

func TestSilverRunArguments(t *testing.T) {
	e := newTestEnv(t, "")

	code, _, errOut := e.run(t, "silver", "run")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--all")

	code, _, errOut = e.run(t, "silver", "run", "AIRLINES", "--all")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--all")

	code, _, errOut = e.run(t, "silver", "run", "NOPE")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown dataset")
}

func TestDatasetsListsBuiltinsAndConfigured(t *testing.T) {
	e := newTestEnv(t, `datasets:
  - name: AIRCRAFT
    input: BRONZE_AIRCRAFT_RAW
    output: SILVER_AIRCRAFT
    transform:
      - { kind: normalize, options: { column: TAIL_NUMBER, fns: [trim, upper] } }
      - { kind: stamp_load_time }
`)

	code, out, errOut := e.run(t, "datasets")
	require.Equal(t, 0, code, errOut)
	for _, name := range []string{"AIRLINES", "AIRPORTS", "FLIGHTS_SAMPLE", "AIRCRAFT"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "aviation_project.airlines.SILVER_AIRCRAFT")
}

func TestAuditInit(t *testing.T) {
	e := newTestEnv(t, "")

	code, out, errOut := e.run(t, "audit", "init")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "PROJECT_AUDIT_LOGS")

	code, out, _ = e.run(t, "audit", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "LOG_TIME")
}

func TestValidate(t *testing.T) {
	e := newTestEnv(t, "")
	code, out, errOut := e.run(t, "validate")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "configuration is valid")

	bad := newTestEnv(t, `metrics:
  backend: graphite
datasets:
  - name: BROKEN
    input: A
    output: B
    transform:
      - { kind: dedup }
`)
	code, _, errOut = bad.run(t, "validate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "metrics.backend")
	assert.Contains(t, errOut, "datasets[0].transform[0].kind")
}

func TestUnknownMetricsBackendFailsRun(t *testing.T) {
	e := newTestEnv(t, "metrics:\n  backend: graphite\n")
	code, _, errOut := e.run(t, "datasets")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "graphite")
}

func TestLogFlagOverridesConfig(t *testing.T) {
	e := newTestEnv(t, "")
	code, _, errOut := e.run(t, "--log-level", "loud", "datasets")
	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(errOut, "loud"), errOut)
}

func TestBronzeUnknownSource(t *testing.T) {
	e := newTestEnv(t, "")
	code, _, errOut := e.run(t, "bronze", "ingest", "airports")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown bronze source "airports"`)
}

func TestBronzeProbePrintsDraft(t *testing.T) {
	e := newTestEnv(t, "")
	code, out, errOut := e.run(t, "bronze", "probe", filepath.Join(e.dir, "airlines.csv"))
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "IATA_CODE")
	assert.Contains(t, out, "name: AIRLINES")
	assert.Contains(t, out, "input: BRONZE_AIRLINES_RAW")
	assert.Contains(t, out, "kind: stamp_load_time")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"line\nbreak", 20, "line break"},
		{"São Paulo–Guarulhos International", 12, "São Paulo..."},
		{"Zürich", 6, "Zürich"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		assert.Equal(t, tt.want, got, tt.in)
		assert.True(t, utf8.ValidString(got), got)
	}
}

const flightsCSV = `YEAR,MONTH,DAY,AIRLINE,FLIGHT_NUMBER,ORIGIN_AIRPORT,DESTINATION_AIRPORT,DEPARTURE_DELAY,ARRIVAL_DELAY,DIVERTED,CANCELLED,CANCELLATION_REASON,AIR_SYSTEM_DELAY,SECURITY_DELAY,AIRLINE_DELAY,LATE_AIRCRAFT_DELAY,WEATHER_DELAY
2015,1,1,as,98,ANC,SEA,-11,-22,0,0,,,,,,
2015,1,1,AA,2336,LAX,PBI,-8,-9,0,0,,,,,,
2015,1,1,,840,SFO,CLT,-2,5,0,0,,,,,,
2015,1,1,US,258,LAX,CLT,-5,,0,1,B,,,,,
2015,1,1,DL,806,SFO,MSP,25,43,0,0,,43,0,0,0,0
`

// airportsCSV returns n airports; the codes in nullCodes are left empty.
func airportsCSV(n int, nullCodes ...int) string {
	var b strings.Builder
	b.WriteString("IATA_CODE,AIRPORT,CITY,STATE,COUNTRY,LATITUDE,LONGITUDE\n")
	for i := 0; i < n; i++ {
		code := fmt.Sprintf("A%02d", i)
		if slices.Contains(nullCodes, i) {
			code = ""
		}
		fmt.Fprintf(&b, "%s,Airport %d,san josé %d,ca,usa, 37.36,-121.93\n", code, i, i)
	}
	return b.String()
}

func TestBronzeThenSilverAllDatasets(t *testing.T) {
	raw := t.TempDir()
	airports := filepath.Join(raw, "airports.csv")
	flights := filepath.Join(raw, "flights.csv")
	require.NoError(t, os.WriteFile(airports, []byte(airportsCSV(100, 10, 20, 30)), 0o644))
	require.NoError(t, os.WriteFile(flights, []byte(flightsCSV), 0o644))

	e := newTestEnv(t, fmt.Sprintf(`    - name: airports
      uri: %s
      table: BRONZE_AIRPORTS_RAW
    - name: flights
      uri: %s
      table: BRONZE_FLIGHTS_SAMPLE_RAW
`, airports, flights))

	code, out, errOut := e.run(t, "bronze", "ingest")
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "FAILED")

	// Twice: the second run replaces the Silver tables landed by the first.
	for i := 0; i < 2; i++ {
		code, out, errOut = e.run(t, "silver", "run", "--all")
		require.Equal(t, 0, code, out+errOut)
		assert.NotContains(t, out, "FAILED")
		assert.Equal(t, 3, strings.Count(out, "DONE"), out)

		counts := map[string][]string{}
		for _, line := range strings.Split(out, "\n") {
			f := strings.Fields(strings.ReplaceAll(line, "|", " "))
			if len(f) >= 5 && f[1] == "DONE" {
				counts[f[0]] = f[2:5]
			}
		}
		assert.Equal(t, []string{"3", "3", "0"}, counts["AIRLINES"])
		assert.Equal(t, []string{"100", "97", "3"}, counts["AIRPORTS"])
		assert.Equal(t, []string{"5", "4", "1"}, counts["FLIGHTS_SAMPLE"])
	}

	code, out, _ = e.run(t, "audit", "list")
	require.Equal(t, 0, code)
	assert.Equal(t, 6, strings.Count(out, "SUCCESS"), out)
	assert.NotContains(t, out, "FAILURE")
}
