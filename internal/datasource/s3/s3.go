// Package s3 reads raw files from and uploads landed files to S3 compatible
// object stores.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/rs/zerolog/log"
)

// Scheme is the URI scheme handled by this package.
const Scheme = "s3"

// Config holds connection settings. Empty credentials fall back to the
// default AWS provider chain.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	MaxRetries      int
}

// Client wraps the S3 service and uploader.
type Client struct {
	service  s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

// NewClient opens an AWS session for cfg.
func NewClient(cfg Config) (*Client, error) {
	awsCfg := aws.NewConfig().
		WithS3ForcePathStyle(cfg.ForcePathStyle).
		WithMaxRetries(cfg.MaxRetries)
	if cfg.Region != "" {
		awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	ses, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3: cannot establish session: %w", err)
	}
	service := s3.New(ses)
	return NewClientWith(service, s3manager.NewUploaderWithClient(service)), nil
}

// NewClientWith builds a Client from existing service and uploader values.
func NewClientWith(service s3iface.S3API, uploader s3manageriface.UploaderAPI) *Client {
	return &Client{service: service, uploader: uploader}
}

// ParseURI splits "s3://bucket/key" into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("s3: parse %q: %w", uri, err)
	}
	if u.Scheme != Scheme {
		return "", "", fmt.Errorf("s3: %q is not an s3:// uri", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3: %q must name a bucket and a key", uri)
	}
	return u.Host, key, nil
}

// Source is a datasource.Source reading one object.
type Source struct {
	client *Client
	bucket string
	key    string
}

// Source returns a Source for the object at uri.
func (c *Client) Source(uri string) (*Source, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return &Source{client: c, bucket: bucket, key: key}, nil
}

// Open streams the object body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.client.service.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	log.Ctx(ctx).Debug().
		Str("bucket", s.bucket).
		Str("key", s.key).
		Int64("size", aws.Int64Value(obj.ContentLength)).
		Msg("s3: object opened")
	return obj.Body, nil
}

// Upload writes body to the object at uri.
func (c *Client) Upload(ctx context.Context, uri string, body io.Reader) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	_, err = c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("s3: upload %s: %w", uri, err)
	}
	log.Ctx(ctx).Debug().Str("uri", uri).Msg("s3: object uploaded")
	return nil
}
