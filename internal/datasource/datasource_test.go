package datasource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviation/internal/datasource/file"
	"aviation/internal/datasource/httpds"
)

const airlinesCSV = "IATA_CODE,AIRLINE\nUA,United Air Lines Inc.\nAA,American Airlines Inc.\n"

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = io.WriteString(zw, content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readAll(t *testing.T, src Source) string {
	t.Helper()
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestScheme(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"data/airlines.csv":         "",
		"/abs/airlines.csv":         "",
		`C:\data\airlines.csv`:      "",
		"file:///data/airlines.csv": "file",
		"s3://raw/airlines.csv":     "s3",
		"HTTPS://example.com/a.csv": "https",
	}
	for uri, want := range tests {
		assert.Equal(t, want, Scheme(uri), uri)
	}
}

func TestIsGzip(t *testing.T) {
	t.Parallel()

	assert.True(t, IsGzip("flights.csv.gz"))
	assert.True(t, IsGzip("s3://raw/flights.CSV.GZ"))
	assert.True(t, IsGzip("https://example.com/flights.csv.gz?token=1"))
	assert.False(t, IsGzip("flights.csv"))
}

func TestNewLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := filepath.Join(dir, "airlines.csv")
	require.NoError(t, os.WriteFile(plain, []byte(airlinesCSV), 0o644))
	gz := filepath.Join(dir, "airlines.csv.gz")
	writeGzip(t, gz, airlinesCSV)

	src, err := New(plain, Options{})
	require.NoError(t, err)
	assert.IsType(t, &file.Local{}, src)
	assert.Equal(t, airlinesCSV, readAll(t, src))

	src, err = New(gz, Options{})
	require.NoError(t, err)
	assert.Equal(t, airlinesCSV, readAll(t, src))

	src, err = New("file://"+plain, Options{})
	require.NoError(t, err)
	assert.Equal(t, airlinesCSV, readAll(t, src))
}

func TestNewHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, airlinesCSV)
	}))
	defer srv.Close()

	src, err := New(srv.URL+"/airlines.csv", Options{HTTP: httpds.Config{MaxRetries: 1}})
	require.NoError(t, err)
	assert.Equal(t, airlinesCSV, readAll(t, src))
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	_, err := New("", Options{})
	require.Error(t, err)
	_, err = New("ftp://example.com/a.csv", Options{})
	require.ErrorContains(t, err, "unsupported scheme")
	_, err = New("s3://bucket-only/", Options{})
	require.Error(t, err)
}

func TestDecompressRejectsPlainInput(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "not-gzip.csv.gz")
	require.NoError(t, os.WriteFile(p, []byte(airlinesCSV), 0o644))

	_, err := Decompress(file.NewLocal(p)).Open(context.Background())
	require.ErrorContains(t, err, "gzip")
}
