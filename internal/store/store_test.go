package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/ocrextractor/internal/config"
	"github.com/local/ocrextractor/internal/model"
)

func artifacts() []model.Artifact {
	return []model.Artifact{
		{Name: "saida.txt", MediaType: "text/plain; charset=utf-8", Chunk: 1, Content: []byte("1\nA")},
		{Name: "saida.json", MediaType: "application/json", Chunk: 1, Content: []byte(`{"paginas": {}}`)},
	}
}

// exerciseStore runs the behavior every JobStore must share.
func exerciseStore(t *testing.T, s JobStore) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Now().UTC().Truncate(time.Millisecond)
	st := Status{
		Status:    "EXTRACTING",
		Progress:  30,
		Message:   "working",
		Start:     &start,
		Degraded:  true,
		Artifacts: Describe(artifacts()),
		Metadata:  map[string]interface{}{"file": "doc.pdf"},
	}
	require.NoError(t, s.Set(ctx, "j1", st))

	got, ok, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EXTRACTING", got.Status)
	assert.Equal(t, 30, got.Progress)
	assert.True(t, got.Degraded)
	require.NotNil(t, got.Start)
	assert.True(t, start.Equal(*got.Start))
	assert.Equal(t, []ArtifactInfo{
		{Name: "saida.txt", MediaType: "text/plain; charset=utf-8", Chunk: 1, Size: 3},
		{Name: "saida.json", MediaType: "application/json", Chunk: 1, Size: 15},
	}, got.Artifacts)
	assert.Equal(t, "doc.pdf", got.Metadata["file"])

	require.NoError(t, s.AppendLog(ctx, "j1", LogLine{Time: start, Message: "first", Type: "info"}))
	require.NoError(t, s.AppendLog(ctx, "j1", LogLine{Time: start, Message: "second", Type: "success"}))
	logs, err := s.Logs(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Message)
	assert.Equal(t, "success", logs[1].Type)

	require.NoError(t, s.SaveArtifacts(ctx, "j1", artifacts()))
	a, err := s.GetArtifact(ctx, "j1", "saida.txt")
	require.NoError(t, err)
	assert.Equal(t, "1\nA", string(a.Content))
	assert.Equal(t, "text/plain; charset=utf-8", a.MediaType)
	assert.Equal(t, 1, a.Chunk)

	_, err = s.GetArtifact(ctx, "j1", "saida.html")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Release(ctx, "j1"))
	_, ok, err = s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.GetArtifact(ctx, "j1", "saida.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	logs, err = s.Logs(ctx, "j1")
	require.NoError(t, err)
	assert.Empty(t, logs)

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory(time.Hour))
}

func TestMemoryStoreExpires(t *testing.T) {
	now := time.Now()
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "j", Status{Status: "DONE"}))
	require.NoError(t, m.SaveArtifacts(ctx, "j", artifacts()))

	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(ctx, "j")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = m.Get(ctx, "j")
	assert.False(t, ok)
	_, err := m.GetArtifact(ctx, "j", "saida.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedis("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedis("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "j", Status{Status: "DONE"}))
	require.NoError(t, s.SaveArtifacts(ctx, "j", artifacts()))
	assert.Equal(t, time.Minute, mr.TTL("job:j:artifact:saida.txt"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, "j")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.GetArtifact(ctx, "j", "saida.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewPicksBackend(t *testing.T) {
	s, err := New(config.StoreConfig{ResultTTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	mr := miniredis.RunT(t)
	s, err = New(config.StoreConfig{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &Redis{}, s)

	_, err = New(config.StoreConfig{RedisURL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
}
