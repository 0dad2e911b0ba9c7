package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailguard/internal/domain"
)

// memObjects is an in-memory bucket.
type memObjects struct {
	objects  map[string][]byte
	encoding map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, encoding: map[string]string{}}
}

func (m *memObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	m.objects[key] = data
	m.encoding[key] = aws.ToString(in.ContentEncoding)
	return &s3.PutObjectOutput{}, nil
}

func (m *memObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func snapshot() *domain.DeliverabilitySnapshot {
	return &domain.DeliverabilitySnapshot{
		Date:       time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC),
		Sent:       1200,
		Bounced:    18,
		BounceRate: 1.5,
		Score:      85,
	}
}

func TestSnapshotArchive_RoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		objs := newMemObjects()
		a := NewSnapshotArchiveWithClient(objs, ArchiveConfig{Bucket: "b", Prefix: "mg/", Compress: compress})
		ctx := context.Background()

		require.NoError(t, a.Save(ctx, snapshot()))
		got, err := a.Load(ctx, time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, 1200, got.Sent)
		assert.Equal(t, 85, got.Score)

		if compress {
			assert.Equal(t, "gzip", objs.encoding["b/mg/2026/02/07.json.gz"])
		} else {
			assert.Contains(t, objs.objects, "b/mg/2026/02/07.json")
		}
	}
}

func TestSnapshotArchive_Missing(t *testing.T) {
	a := NewSnapshotArchiveWithClient(newMemObjects(), ArchiveConfig{Bucket: "b"})
	_, err := a.Load(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestSnapshotArchive_Key(t *testing.T) {
	a := NewSnapshotArchiveWithClient(nil, ArchiveConfig{Prefix: "x/"})
	assert.Equal(t, "x/2026/12/31.json", a.Key(time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)))
}
