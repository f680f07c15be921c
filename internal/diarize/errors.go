package diarize

import "errors"

// ErrDiarize is the sentinel wrapped by diarization failures. Non-fatal:
// the pipeline executor catches it and continues with a single default
// speaker.
var ErrDiarize = errors.New("diarize: inference failure")

// ErrNoToken is returned when no HF_TOKEN is configured; diarization is
// skipped rather than attempted.
var ErrNoToken = errors.New("diarize: no diarization credential configured")
