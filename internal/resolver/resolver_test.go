package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline/internal/models"
)

func newTestResolver(t *testing.T, defaultBucket string) *Resolver {
	t.Helper()
	r, err := New(Config{
		CacheDir:      t.TempDir(),
		DefaultBucket: defaultBucket,
		DefaultRegion: "us-east-1",
	})
	require.NoError(t, err)
	return r
}

func TestResolve_LocalPathExisting(t *testing.T) {
	r := newTestResolver(t, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "talk.wav")
	require.NoError(t, os.WriteFile(path, []byte("pcm"), 0o644))

	got, err := r.Resolve(context.Background(), models.NewLocalPathRef(path))
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolve_LocalPathMissing(t *testing.T) {
	r := newTestResolver(t, "")
	_, err := r.Resolve(context.Background(), models.NewLocalPathRef("/no/such/file.wav"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_BareKeyWithoutDefaultBucket(t *testing.T) {
	r := newTestResolver(t, "")
	_, err := r.Resolve(context.Background(), models.NewBareKeyRef("consult-42.m4a"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRemoteURITarget_FilenameAsHost(t *testing.T) {
	r := newTestResolver(t, "audio-bucket")
	bucket, key, err := r.remoteURITarget(models.NewRemoteURIRef("s3", "consult-42.m4a", ""))
	require.NoError(t, err)
	assert.Equal(t, "audio-bucket", bucket)
	assert.Equal(t, "consult-42.m4a", key)
}

func TestRemoteURITarget_ExplicitBucketAndKey(t *testing.T) {
	r := newTestResolver(t, "")
	bucket, key, err := r.remoteURITarget(models.NewRemoteURIRef("s3", "audio-bucket", "consult-42.m4a"))
	require.NoError(t, err)
	assert.Equal(t, "audio-bucket", bucket)
	assert.Equal(t, "consult-42.m4a", key)
}

func TestRemoteURITarget_NoBucketNoDefault(t *testing.T) {
	r := newTestResolver(t, "")
	_, _, err := r.remoteURITarget(models.NewRemoteURIRef("s3", "", "consult-42.m4a"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestParseRemoteURI(t *testing.T) {
	scheme, bucket, key, ok := ParseRemoteURI("s3://audio-bucket/consult-42.m4a")
	require.True(t, ok)
	assert.Equal(t, "s3", scheme)
	assert.Equal(t, "audio-bucket", bucket)
	assert.Equal(t, "consult-42.m4a", key)
}

func TestParseRemoteURI_NoPath(t *testing.T) {
	scheme, bucket, key, ok := ParseRemoteURI("s3://consult-42.m4a")
	require.True(t, ok)
	assert.Equal(t, "s3", scheme)
	assert.Equal(t, "consult-42.m4a", bucket)
	assert.Equal(t, "", key)
}

func TestResolve_CacheHit(t *testing.T) {
	r := newTestResolver(t, "audio-bucket")
	cached := filepath.Join(r.cacheDir, "consult-42.m4a")
	require.NoError(t, os.WriteFile(cached, []byte("cached"), 0o644))

	got, err := r.Resolve(context.Background(), models.NewRemoteURIRef("s3", "audio-bucket", "consult-42.m4a"))
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}
