package normalizer

import "errors"

// ErrEnvironment is returned when the external media converter (ffmpeg) or
// prober (ffprobe) cannot be found in the host environment.
var ErrEnvironment = errors.New("normalizer: media converter unavailable")
