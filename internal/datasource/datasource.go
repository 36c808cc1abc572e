// Package datasource opens raw Bronze files by URI: local paths, s3:// objects
// and http(s):// downloads. Names ending in .gz are decompressed on the fly.
package datasource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/pgzip"

	"aviation/internal/datasource/file"
	"aviation/internal/datasource/httpds"
	"aviation/internal/datasource/s3"
)

// Source opens a byte stream. Callers close the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Options carries per-scheme client settings.
type Options struct {
	S3   s3.Config
	HTTP httpds.Config
}

// New returns the Source for uri. A trailing .gz wraps it with Decompress.
func New(uri string, opt Options) (Source, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("datasource: empty uri")
	}
	var (
		src Source
		err error
	)
	switch Scheme(uri) {
	case "", "file":
		src = file.NewLocal(strings.TrimPrefix(uri, "file://"))
	case s3.Scheme:
		var c *s3.Client
		if c, err = s3.NewClient(opt.S3); err == nil {
			src, err = c.Source(uri)
		}
	case "http", "https":
		src = httpds.NewSource(httpds.NewClient(opt.HTTP), uri)
	default:
		err = fmt.Errorf("datasource: unsupported scheme in %q", uri)
	}
	if err != nil {
		return nil, err
	}
	if IsGzip(uri) {
		src = Decompress(src)
	}
	return src, nil
}

// Scheme returns the lower-cased URI scheme, or "" for plain paths.
func Scheme(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || len(u.Scheme) < 2 {
		// Single letters are Windows drive names.
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// IsGzip reports whether uri names a gzip file.
func IsGzip(uri string) bool {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		uri = u.Path
	}
	return strings.HasSuffix(strings.ToLower(uri), ".gz")
}

// Decompress wraps src so that Open returns the gunzipped stream.
func Decompress(src Source) Source { return gzipSource{src: src} }

type gzipSource struct{ src Source }

func (g gzipSource) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := g.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	zr, err := pgzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("datasource: gzip: %w", err)
	}
	return &gzipReadCloser{Reader: zr, under: rc}, nil
}

type gzipReadCloser struct {
	*pgzip.Reader
	under io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.under.Close(); err != nil {
		return err
	}
	return zerr
}
