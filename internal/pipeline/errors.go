package pipeline

import "errors"

// Sentinel error kinds for the pipeline executor's per-stage policy (§7).
// These wrap, rather than replace, the stage packages' own sentinels so
// errors.Is still matches the originating package's error too.
var (
	// ErrConfig covers a missing bucket, missing credential, or
	// unsupported job option. Fatal to the job.
	ErrConfig = errors.New("pipeline: config error")

	// ErrResolve covers object-not-found, access-denied, no-such-bucket.
	// Fatal to the job.
	ErrResolve = errors.New("pipeline: resolve error")

	// ErrEnvironment covers a missing media converter or subprocess
	// interpreter. Fatal to the job (fatal to the server if detected at
	// startup, handled by internal/server instead).
	ErrEnvironment = errors.New("pipeline: environment error")

	// ErrTranscribe covers ASR inference failure. Fatal to the job.
	ErrTranscribe = errors.New("pipeline: transcribe error")

	// ErrTurnReconstruct covers an unexpected failure in turn assembly.
	// Fatal to the job.
	ErrTurnReconstruct = errors.New("pipeline: turn reconstruction error")

	// ErrProtocol covers a malformed request, handled by internal/server;
	// declared here so the executor's callers can reuse the same
	// taxonomy.
	ErrProtocol = errors.New("pipeline: protocol error")
)
