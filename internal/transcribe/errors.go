package transcribe

import "errors"

// ErrTranscribe is the sentinel wrapped by per-request transcription
// failures. Fatal to the job; the pipeline executor does not degrade past
// a failed transcription.
var ErrTranscribe = errors.New("transcribe: inference failure")

// ErrModelLoad is returned by New when the underlying ASR capability fails
// to initialize. Fatal at worker init.
var ErrModelLoad = errors.New("transcribe: model load failure")
