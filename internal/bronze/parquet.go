package bronze

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"aviation/internal/datasource"
	"aviation/internal/datasource/file"
	"aviation/internal/datasource/s3"
	"aviation/internal/table"
)

// Uploader stores a finished file at an object store URI. *s3.Client
// implements it.
type Uploader interface {
	Upload(ctx context.Context, uri string, body io.Reader) error
}

// ParquetSink writes the landed table as one snappy-compressed Parquet file
// to a local path or an s3:// URI.
type ParquetSink struct {
	Dest string
	// Uploader handles s3:// destinations.
	Uploader Uploader
}

// NewParquetSink returns a sink for dest. An s3:// dest gets a client built
// from cfg.
func NewParquetSink(dest string, cfg s3.Config) (*ParquetSink, error) {
	sink := &ParquetSink{Dest: dest}
	if datasource.Scheme(dest) == s3.Scheme {
		if _, _, err := s3.ParseURI(dest); err != nil {
			return nil, err
		}
		c, err := s3.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		sink.Uploader = c
	}
	return sink, nil
}

func (s *ParquetSink) String() string { return "parquet:" + s.Dest }

// Write encodes t and stores it at Dest. A local destination is replaced
// only once the whole file is written.
func (s *ParquetSink) Write(ctx context.Context, t *table.Table) error {
	var buf bytes.Buffer
	if err := EncodeParquet(&buf, t); err != nil {
		return err
	}
	if datasource.Scheme(s.Dest) == s3.Scheme {
		if s.Uploader == nil {
			return fmt.Errorf("bronze: no uploader for %s", s.Dest)
		}
		return s.Uploader.Upload(ctx, s.Dest, &buf)
	}

	w, err := file.Create(s.Dest)
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		if a, ok := w.(interface{ Abort() error }); ok {
			_ = a.Abort()
		}
		return fmt.Errorf("bronze: write %s: %w", s.Dest, err)
	}
	return w.Close()
}

// ArrowSchema maps table columns to nullable Arrow fields.
func ArrowSchema(cols []table.Column) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		var dt arrow.DataType
		switch c.Type {
		case table.String:
			dt = arrow.BinaryTypes.String
		case table.Int:
			dt = arrow.PrimitiveTypes.Int64
		case table.Float:
			dt = arrow.PrimitiveTypes.Float64
		case table.Bool:
			dt = arrow.FixedWidthTypes.Boolean
		case table.Timestamp:
			dt = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
		case table.Date:
			dt = arrow.FixedWidthTypes.Date32
		default:
			return nil, fmt.Errorf("bronze: column %q: no parquet mapping for %s", c.Name, c.Type)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// EncodeParquet writes t to w as a single row group.
func EncodeParquet(w io.Writer, t *table.Table) error {
	schema, err := ArrowSchema(t.Columns)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for ri, row := range t.Rows {
		for ci, v := range row {
			if err := appendValue(b.Field(ci), v); err != nil {
				return fmt.Errorf("bronze: row %d column %q: %w", ri+1, t.Columns[ci].Name, err)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("bronze: parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("bronze: parquet write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("bronze: parquet close: %w", err)
	}
	return nil
}

func appendValue(fb array.Builder, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}
	var ok bool
	switch b := fb.(type) {
	case *array.StringBuilder:
		var s string
		if s, ok = v.(string); ok {
			b.Append(s)
		}
	case *array.Int64Builder:
		var n int64
		if n, ok = v.(int64); ok {
			b.Append(n)
		}
	case *array.Float64Builder:
		var f float64
		if f, ok = v.(float64); ok {
			b.Append(f)
		}
	case *array.BooleanBuilder:
		var x bool
		if x, ok = v.(bool); ok {
			b.Append(x)
		}
	case *array.TimestampBuilder:
		var ts time.Time
		if ts, ok = v.(time.Time); ok {
			b.Append(arrow.Timestamp(ts.UTC().UnixMicro()))
		}
	case *array.Date32Builder:
		var d time.Time
		if d, ok = v.(time.Time); ok {
			b.Append(arrow.Date32FromTime(d))
		}
	}
	if !ok {
		return fmt.Errorf("unexpected value %T", v)
	}
	return nil
}
