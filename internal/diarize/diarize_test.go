package diarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline/internal/models"
)

func TestBestSpeaker_MaximalOverlapWins(t *testing.T) {
	w := models.Word{Start: 1.0, End: 3.0}
	spans := []models.SpeakerSpan{
		{Start: 0, End: 1.5, SpeakerID: "A"},
		{Start: 1.0, End: 4.0, SpeakerID: "B"},
	}
	spk, ok := bestSpeaker(w, spans)
	require.True(t, ok)
	assert.Equal(t, "B", spk)
}

func TestBestSpeaker_TieBreaksToEarliestStart(t *testing.T) {
	w := models.Word{Start: 1.0, End: 3.0}
	spans := []models.SpeakerSpan{
		{Start: 0.5, End: 2.5, SpeakerID: "A"},
		{Start: 0.0, End: 2.5, SpeakerID: "B"},
	}
	spk, ok := bestSpeaker(w, spans)
	require.True(t, ok)
	assert.Equal(t, "B", spk)
}

func TestBestSpeaker_NoOverlap(t *testing.T) {
	w := models.Word{Start: 10.0, End: 11.0}
	spans := []models.SpeakerSpan{{Start: 0, End: 1, SpeakerID: "A"}}
	_, ok := bestSpeaker(w, spans)
	assert.False(t, ok)
}

func TestAssignSpeakers_LeavesUnassignedWordsNil(t *testing.T) {
	segs := []models.Segment{
		{Start: 0, End: 2, Text: "hello", Words: []models.Word{{Start: 0, End: 1, Text: "hello"}}},
	}
	enriched := AssignSpeakers(segs, nil, "en")
	require.Len(t, enriched.Segments, 1)
	assert.Nil(t, enriched.Segments[0].Words[0].Speaker)
}

func TestAssignSpeakers_AssignsFromSpan(t *testing.T) {
	segs := []models.Segment{
		{Start: 0, End: 2, Text: "hello", Words: []models.Word{{Start: 0, End: 1, Text: "hello"}}},
	}
	spans := []models.SpeakerSpan{{Start: 0, End: 1, SpeakerID: "SPEAKER_01"}}
	enriched := AssignSpeakers(segs, spans, "en")
	require.NotNil(t, enriched.Segments[0].Words[0].Speaker)
	assert.Equal(t, "SPEAKER_01", *enriched.Segments[0].Words[0].Speaker)
}

func TestNew_EnabledReflectsToken(t *testing.T) {
	assert.True(t, New("tok").Enabled())
	assert.False(t, New("").Enabled())
}
