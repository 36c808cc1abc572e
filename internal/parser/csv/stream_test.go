package csv

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviation/internal/table"
)

func TestReadAll(t *testing.T) {
	in := "\uFEFFIATA_CODE, AIRLINE \nUA,United Air Lines Inc.\n AA ,\nDL\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"IATA_CODE", "AIRLINE"}, r.Header())

	tb, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []table.Column{{Name: "IATA_CODE", Type: table.String}, {Name: "AIRLINE", Type: table.String}}, tb.Columns)
	assert.Equal(t, []table.Row{
		{"UA", "United Air Lines Inc."},
		{"AA", nil},
		{"DL", nil},
	}, tb.Rows)
}

func TestKeepSpaceAndComma(t *testing.T) {
	r, err := NewReader(strings.NewReader("A;B\n x ;\"y;z\"\n"), Options{Comma: ';', KeepSpace: true})
	require.NoError(t, err)
	tb, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{" x ", "y;z"}}, tb.Rows)
}

func TestReaderErrors(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrEmptyHeader)

	_, err = NewReader(strings.NewReader("A,A\n"), Options{})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewReader(strings.NewReader("A,,C\n"), Options{})
	assert.ErrorContains(t, err, "blank")

	r, err := NewReader(strings.NewReader("A,B\n1,2,3\n"), Options{})
	require.NoError(t, err)
	_, err = r.ReadAll(context.Background())
	assert.ErrorContains(t, err, "line 2")

	r, err = NewReader(strings.NewReader("A\n\"unterminated\n"), Options{})
	require.NoError(t, err)
	_, err = r.ReadAll(context.Background())
	assert.Error(t, err)
}

func TestStreamCancelled(t *testing.T) {
	r, err := NewReader(strings.NewReader("A\n1\n2\n"), Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := r.Stream(ctx, make(chan table.Row, 10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
