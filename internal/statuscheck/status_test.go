package statuscheck

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type bucketPing struct {
	err    error
	bucket string
}

func (b *bucketPing) Ping(ctx context.Context, bucket string) error {
	b.bucket = bucket
	return b.err
}

func TestSummaryHealthy(t *testing.T) {
	s3 := &bucketPing{}
	c := New(Options{
		Store:            pingFunc(func(context.Context) error { return nil }),
		S3:               s3,
		S3Bucket:         "inputs",
		Engine:           "gemini",
		EngineConfigured: true,
	})

	sum := c.Summary(context.Background())
	assert.True(t, sum.Store.OK)
	assert.True(t, sum.S3.OK)
	assert.Equal(t, "inputs", s3.bucket)
	assert.True(t, sum.Recognizer.OK)
	assert.True(t, sum.MuPDF.OK, sum.MuPDF.Message)
	assert.True(t, sum.Healthy())
}

func TestSummaryDegraded(t *testing.T) {
	c := New(Options{
		Store:  pingFunc(func(context.Context) error { return errors.New(strings.Repeat("x", 300)) }),
		S3:     &bucketPing{err: errors.New("forbidden")},
		Engine: "openai",
	})

	sum := c.Summary(context.Background())
	assert.False(t, sum.Store.OK)
	assert.Len(t, sum.Store.Message, 120)
	assert.False(t, sum.S3.OK)
	assert.Equal(t, "Bucket not configured", sum.S3.Message)
	assert.False(t, sum.Recognizer.OK)
	assert.Contains(t, sum.Recognizer.Message, "openai not configured")
	assert.False(t, sum.Healthy())
}

func TestSummaryWithoutStore(t *testing.T) {
	sum := New(Options{}).Summary(context.Background())
	assert.False(t, sum.Store.OK)
	assert.Equal(t, "client unavailable", sum.Store.Message)
}
