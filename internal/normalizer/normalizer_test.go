package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConforms_AlreadyNormalized(t *testing.T) {
	p := probeResult{}
	p.Streams = append(p.Streams, struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		SampleFmt  string `json:"sample_fmt"`
	}{CodecType: "audio", CodecName: "pcm_s16le", SampleRate: "16000", Channels: 1})

	assert.True(t, conforms(p))
}

func TestConforms_WrongSampleRate(t *testing.T) {
	p := probeResult{}
	p.Streams = append(p.Streams, struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		SampleFmt  string `json:"sample_fmt"`
	}{CodecType: "audio", CodecName: "pcm_s16le", SampleRate: "44100", Channels: 1})

	assert.False(t, conforms(p))
}

func TestConforms_Stereo(t *testing.T) {
	p := probeResult{}
	p.Streams = append(p.Streams, struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		SampleFmt  string `json:"sample_fmt"`
	}{CodecType: "audio", CodecName: "pcm_s16le", SampleRate: "16000", Channels: 2})

	assert.False(t, conforms(p))
}

func TestConforms_CompressedCodec(t *testing.T) {
	p := probeResult{}
	p.Streams = append(p.Streams, struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		SampleFmt  string `json:"sample_fmt"`
	}{CodecType: "audio", CodecName: "aac", SampleRate: "16000", Channels: 1})

	assert.False(t, conforms(p))
}

func TestOutputPath_SiblingNaming(t *testing.T) {
	n := New("/tmp/cache")
	got := n.outputPath("/tmp/cache/consult-42.m4a")
	assert.Equal(t, "/tmp/cache/consult-42_16k_mono.wav", got)
}
