package binaries

import "os"

func resolve(envKey, fallback string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return fallback
}

// UV returns the configured uv executable path, used to invoke the Python
// ASR/diarization capabilities.
func UV() string {
	return resolve("PIPELINE_UV_BIN", "uv")
}

// FFmpeg returns the configured ffmpeg executable path.
func FFmpeg() string {
	return resolve("PIPELINE_FFMPEG_BIN", "ffmpeg")
}

// FFprobe returns the configured ffprobe executable path.
func FFprobe() string {
	return resolve("PIPELINE_FFPROBE_BIN", "ffprobe")
}
