package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pipeline/internal/diarize"
	"pipeline/internal/extract"
	"pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	segments []models.Segment
	lang     string
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio models.NormalizedAudio, langHint string) ([]models.Segment, string, error) {
	return f.segments, f.lang, f.err
}

func (f *fakeTranscriber) Ready(ctx context.Context) error { return nil }

func TestExecutor_TranscribeUsesConfiguredCapability(t *testing.T) {
	e := New(t.TempDir())
	e.Transcriber = &fakeTranscriber{
		segments: []models.Segment{{Start: 0, End: 1, Text: "hello"}},
		lang:     "en",
	}

	segments, lang, err := e.transcribe(context.Background(), models.NormalizedAudio{Path: "x.wav"}, "auto")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	assert.Len(t, segments, 1)
}

func TestExecutor_DiarizeSkipsWithoutCredential(t *testing.T) {
	e := New(t.TempDir())
	e.Diarizer = diarize.New("")

	spans := e.diarize(context.Background(), "job-1", models.NormalizedAudio{Path: "x.wav"})
	assert.Nil(t, spans)
}

func TestExecutor_TranslateSkippedByOption(t *testing.T) {
	e := New(t.TempDir())
	lean := models.LeanTranscript{
		LanguagesDetected: []string{"ms"},
		Turns:             []models.Turn{{TurnID: 1, Speaker: "SPEAKER_00", Text: "hai"}},
	}
	job := models.Job{JobID: "job-1", Options: models.JobOptions{SkipTranslation: true}}

	translated := e.translate(context.Background(), job, lean)
	assert.Equal(t, []string{"en"}, translated.LanguagesDetected)
	assert.Equal(t, lean.Turns, translated.Turns)
}

func TestExecutor_TranslateSkippedWhenNoTranslatorConfigured(t *testing.T) {
	e := New(t.TempDir())
	lean := models.LeanTranscript{LanguagesDetected: []string{"ms"}, Turns: []models.Turn{{TurnID: 1, Text: "hai"}}}
	job := models.Job{JobID: "job-1"}

	translated := e.translate(context.Background(), job, lean)
	assert.Equal(t, []string{"en"}, translated.LanguagesDetected)
}

func TestExecutor_NewLeavesExtractorUnset(t *testing.T) {
	e := New(t.TempDir())
	assert.Nil(t, e.Extractor)
}

func TestExecutor_ExtractUsesRuleExtractor(t *testing.T) {
	e := New(t.TempDir())
	e.Extractor = extract.NewRuleOnlyExtractor()
	job := models.Job{JobID: "job-1"}
	turnsIn := []models.Turn{{TurnID: 1, Speaker: "SPEAKER_01", Text: "I have chest pain for 2 days."}}

	record := e.extract(context.Background(), job, turnsIn)
	require.NotNil(t, record)
	require.NotNil(t, record.ChiefComplaint)
	assert.Contains(t, *record.ChiefComplaint, "chest pain")
}

func TestExecutor_WriteArtifactRoundTrips(t *testing.T) {
	e := New(t.TempDir())
	path, err := e.writeArtifact("00_transcripts", "stem_whisperx_1.json", rawASRArtifact{
		Segments:         []models.Segment{{Start: 0, End: 1, Text: "hi"}},
		DetectedLanguage: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.OutputDir, "00_transcripts", "stem_whisperx_1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got rawASRArtifact
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "en", got.DetectedLanguage)
	assert.Len(t, got.Segments, 1)
}

func TestStemFor(t *testing.T) {
	ref := models.NewLocalPathRef("/tmp/consult-42.wav")
	assert.Equal(t, "consult-42", stemFor(ref, "/tmp/consult-42.wav"))
}

func TestAudioRefString(t *testing.T) {
	assert.Equal(t, "/tmp/a.wav", audioRefString(models.NewLocalPathRef("/tmp/a.wav")))
	assert.Equal(t, "s3://bucket/key.wav", audioRefString(models.NewRemoteURIRef("s3", "bucket", "key.wav")))
	assert.Equal(t, "bare.wav", audioRefString(models.NewBareKeyRef("bare.wav")))
}
