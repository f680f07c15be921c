package resolver

import "errors"

// Sentinel error kinds for the source resolver. Wrap with fmt.Errorf("%w: ...")
// to attach detail while preserving errors.Is matching.
var (
	// ErrConfig is returned when a bucket or credential the resolver needs
	// is missing from configuration. Fatal to the job.
	ErrConfig = errors.New("resolver: config error")

	// ErrNotFound is returned when the object-store head request reports
	// the object does not exist. Fatal to the job.
	ErrNotFound = errors.New("resolver: object not found")

	// ErrAccessDenied is returned when the object-store head request
	// reports insufficient permission. Fatal to the job.
	ErrAccessDenied = errors.New("resolver: access denied")

	// ErrNoSuchBucket is returned when the configured or derived bucket
	// does not exist. Fatal to the job.
	ErrNoSuchBucket = errors.New("resolver: no such bucket")

	// ErrTransient covers network/transport failures that a caller may
	// retry; never raised by the resolver itself for not-found/denied/
	// config conditions.
	ErrTransient = errors.New("resolver: transient transport error")
)
