// Package resolver implements the source resolver (C1): it turns a caller
// supplied AudioRef into a guaranteed-local, readable file path, fetching
// from the object store and consulting an on-disk cache as needed.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"pipeline/internal/models"
	"pipeline/pkg/logger"
)

// hostLooksLikeFilename matches an authority component such as
// "consult-42.m4a" in "s3://consult-42.m4a" -- a bare filename passed as the
// URI host rather than a real bucket name.
var hostLooksLikeFilename = regexp.MustCompile(`^[^/]+\.[A-Za-z0-9]+$`)

// Resolver fetches audio artifacts and caches them locally.
type Resolver struct {
	sess          *session.Session
	s3            *s3.S3
	cacheDir      string
	defaultBucket string
	defaultRegion string
}

// Config carries the resolver's external dependencies.
type Config struct {
	CacheDir      string
	DefaultBucket string
	DefaultRegion string
}

// New constructs a Resolver bound to the given cache directory and default
// bucket/region. It establishes the AWS session but performs no I/O.
func New(cfg Config) (*Resolver, error) {
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("%w: cache directory is required", ErrConfig)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("resolver: create cache dir: %w", err)
	}
	region := cfg.DefaultRegion
	if region == "" {
		region = "us-east-1"
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("resolver: create aws session: %w", err)
	}
	return &Resolver{
		sess:          sess,
		s3:            s3.New(sess),
		cacheDir:      cfg.CacheDir,
		defaultBucket: cfg.DefaultBucket,
		defaultRegion: region,
	}, nil
}

// Resolve turns ref into a local, readable path.
func (r *Resolver) Resolve(ctx context.Context, ref models.AudioRef) (string, error) {
	switch ref.Kind {
	case models.AudioRefLocalPath:
		return r.resolveLocalPath(ref.LocalPath)
	case models.AudioRefBareKey:
		bucket, key, err := r.bareKeyTarget(ref.BareKey)
		if err != nil {
			return "", err
		}
		return r.fetch(ctx, bucket, key)
	case models.AudioRefRemoteURI:
		bucket, key, err := r.remoteURITarget(ref)
		if err != nil {
			return "", err
		}
		return r.fetch(ctx, bucket, key)
	default:
		return "", fmt.Errorf("%w: unrecognized audio ref kind", ErrConfig)
	}
}

func (r *Resolver) resolveLocalPath(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("resolver: stat %s: %w", path, err)
	}
	return path, nil
}

func (r *Resolver) bareKeyTarget(key string) (bucket, resolvedKey string, err error) {
	if r.defaultBucket == "" {
		return "", "", fmt.Errorf("%w: bare key %q with no default bucket configured", ErrConfig, key)
	}
	return r.defaultBucket, key, nil
}

// remoteURITarget separates bucket and key from a RemoteURI ref, handling
// the special case where the host component looks like a bare filename
// rather than a bucket name.
func (r *Resolver) remoteURITarget(ref models.AudioRef) (bucket, key string, err error) {
	bucket = ref.Bucket
	key = ref.Key

	if bucket != "" && hostLooksLikeFilename.MatchString(bucket) && key == "" {
		// e.g. "s3://consult-42.m4a": what parsed as the bucket is really
		// the filename; fall back to the default bucket.
		if r.defaultBucket == "" {
			return "", "", fmt.Errorf("%w: %s://%s looks like a bare filename but no default bucket is configured", ErrConfig, ref.Scheme, bucket)
		}
		return r.defaultBucket, bucket, nil
	}

	if bucket == "" {
		if r.defaultBucket == "" {
			return "", "", fmt.Errorf("%w: no bucket in URI and no default bucket configured", ErrConfig)
		}
		bucket = r.defaultBucket
	}
	if key == "" {
		return "", "", fmt.Errorf("%w: empty object key", ErrConfig)
	}
	return bucket, key, nil
}

// fetch consults the cache, then the object store, returning a local path.
func (r *Resolver) fetch(ctx context.Context, bucket, key string) (string, error) {
	basename := filepath.Base(key)
	cachedPath := filepath.Join(r.cacheDir, basename)
	if _, err := os.Stat(cachedPath); err == nil {
		logger.Debug("resolver cache hit", "bucket", bucket, "key", key, "path", cachedPath)
		return cachedPath, nil
	}

	client, err := r.clientForObjectRegion(ctx, bucket, key)
	if err != nil {
		return "", err
	}

	if err := r.headObject(ctx, client, bucket, key); err != nil {
		return "", err
	}

	out, err := os.CreateTemp(r.cacheDir, ".fetch-*")
	if err != nil {
		return "", fmt.Errorf("resolver: create temp file: %w", err)
	}
	tmpPath := out.Name()
	defer out.Close()

	downloader := s3manager.NewDownloaderWithClient(client)
	if _, err := downloader.DownloadWithContext(ctx, out, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		os.Remove(tmpPath)
		return "", classifyAWSErr(err)
	}
	out.Close()

	if err := os.Rename(tmpPath, cachedPath); err != nil {
		return "", fmt.Errorf("resolver: install cached file: %w", err)
	}
	logger.Info("resolver fetched object", "bucket", bucket, "key", key, "path", cachedPath)
	return cachedPath, nil
}

// clientForObjectRegion probes the object's region and, if it differs from
// the resolver's configured region, returns a client re-bound to that
// region for this operation only. The resolver's shared client and region
// are never mutated.
func (r *Resolver) clientForObjectRegion(ctx context.Context, bucket, key string) (*s3.S3, error) {
	region, err := s3manager.GetBucketRegionWithClient(ctx, r.s3, bucket)
	if err != nil {
		// Region discovery is best-effort; fall back to the default client
		// and let the subsequent head/get call surface the real error.
		return r.s3, nil
	}
	if region == "" || region == r.defaultRegion {
		return r.s3, nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return r.s3, nil
	}
	return s3.New(sess), nil
}

func (r *Resolver) headObject(ctx context.Context, client *s3.S3, bucket, key string) error {
	_, err := client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyAWSErr(err)
	}
	return nil
}

// classifyAWSErr maps an AWS SDK error into the resolver's fatal error
// taxonomy, falling back to ErrTransient for anything not recognized as
// not-found/access-denied/no-such-bucket.
func classifyAWSErr(err error) error {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return fmt.Errorf("%w: %s", ErrNotFound, aerr.Message())
	case "Forbidden", "AccessDenied":
		return fmt.Errorf("%w: %s", ErrAccessDenied, aerr.Message())
	case s3.ErrCodeNoSuchBucket:
		return fmt.Errorf("%w: %s", ErrNoSuchBucket, aerr.Message())
	default:
		return fmt.Errorf("%w: %s: %s", ErrTransient, aerr.Code(), aerr.Message())
	}
}

// ParseRemoteURI splits a "scheme://bucket/key" style URI into its parts.
// Hosts with no path component and a dot in the name are left for the
// caller to disambiguate via remoteURITarget's filename heuristic.
func ParseRemoteURI(uri string) (scheme, bucket, key string, ok bool) {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return "", "", "", false
	}
	scheme = uri[:idx]
	rest := uri[idx+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return scheme, rest, "", true
	}
	return scheme, rest[:slash], rest[slash+1:], true
}
