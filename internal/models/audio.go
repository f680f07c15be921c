package models

// AudioRefKind discriminates the variant carried by an AudioRef.
type AudioRefKind int

const (
	// AudioRefLocalPath is a path on the local filesystem.
	AudioRefLocalPath AudioRefKind = iota
	// AudioRefRemoteURI is a fully-qualified object-store URI, e.g. s3://bucket/key.
	AudioRefRemoteURI
	// AudioRefBareKey is an object-store key with no bucket, resolved against
	// the configured default bucket.
	AudioRefBareKey
)

// AudioRef is the caller-supplied handle to an audio artifact. Exactly one
// of the fields is meaningful, selected by Kind.
type AudioRef struct {
	Kind AudioRefKind

	// LocalPath is set when Kind == AudioRefLocalPath.
	LocalPath string

	// Scheme, Bucket, Key are set when Kind == AudioRefRemoteURI.
	Scheme string
	Bucket string
	Key    string

	// BareKey is set when Kind == AudioRefBareKey.
	BareKey string
}

// NewLocalPathRef builds a LocalPath AudioRef.
func NewLocalPathRef(path string) AudioRef {
	return AudioRef{Kind: AudioRefLocalPath, LocalPath: path}
}

// NewRemoteURIRef builds a RemoteURI AudioRef.
func NewRemoteURIRef(scheme, bucket, key string) AudioRef {
	return AudioRef{Kind: AudioRefRemoteURI, Scheme: scheme, Bucket: bucket, Key: key}
}

// NewBareKeyRef builds a BareKey AudioRef.
func NewBareKeyRef(key string) AudioRef {
	return AudioRef{Kind: AudioRefBareKey, BareKey: key}
}

// CachedAudio is a guaranteed-local file produced by the resolver, owned by
// the cache directory. Only the cache creates these; eviction is external.
type CachedAudio struct {
	Path   string
	Size   int64
	Format string
}

// NormalizedAudio conforms to the transcriber's required input shape: mono,
// 16 kHz, signed 16-bit PCM, uncompressed container. Produced only by the
// normalizer.
type NormalizedAudio struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
}
