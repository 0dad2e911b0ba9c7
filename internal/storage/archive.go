// Package storage archives daily deliverability snapshots to S3 so the
// history outlives the database retention window.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// ErrNotArchived is returned when no archive object exists for a day.
var ErrNotArchived = errors.New("snapshot not archived")

// ObjectAPI is the part of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ArchiveConfig locates the archive.
type ArchiveConfig struct {
	Bucket   string
	Prefix   string // e.g. "mailguard/snapshots/"
	Region   string
	Compress bool
}

// SnapshotArchive writes one JSON object per day under Prefix/YYYY/MM/DD.
type SnapshotArchive struct {
	client   ObjectAPI
	bucket   string
	prefix   string
	compress bool
}

// NewSnapshotArchive builds an archive on the default AWS credential chain.
func NewSnapshotArchive(ctx context.Context, cfg ArchiveConfig) (*SnapshotArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSnapshotArchiveWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewSnapshotArchiveWithClient builds an archive around an existing client.
func NewSnapshotArchiveWithClient(client ObjectAPI, cfg ArchiveConfig) *SnapshotArchive {
	return &SnapshotArchive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, compress: cfg.Compress}
}

// Key returns the object key for a day.
func (a *SnapshotArchive) Key(day time.Time) string {
	key := a.prefix + day.UTC().Format("2006/01/02") + ".json"
	if a.compress {
		key += ".gz"
	}
	return key
}

// Save uploads the snapshot, replacing any earlier object for that day.
func (a *SnapshotArchive) Save(ctx context.Context, snap *domain.DeliverabilitySnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(snap.Date)),
		ContentType: aws.String("application/json"),
	}
	if a.compress {
		if data, err = gzipBytes(data); err != nil {
			return fmt.Errorf("compress snapshot: %w", err)
		}
		in.ContentEncoding = aws.String("gzip")
	}
	in.Body = bytes.NewReader(data)

	if _, err := a.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put snapshot %s: %w", aws.ToString(in.Key), err)
	}
	logger.Info("snapshot archived", "bucket", a.bucket, "key", aws.ToString(in.Key))
	return nil
}

// Load fetches the archived snapshot for a day.
func (a *SnapshotArchive) Load(ctx context.Context, day time.Time) (*domain.DeliverabilitySnapshot, error) {
	key := a.Key(day)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(a.bucket), Key: aws.String(key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrNotArchived
		}
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if a.compress {
		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", key, err)
		}
		defer gz.Close()
		r = gz
	}

	var snap domain.DeliverabilitySnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &snap, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
