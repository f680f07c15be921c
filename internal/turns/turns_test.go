package turns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline/internal/models"
)

func spk(id string) *string { return &id }

func TestReconstruct_DropsHallucinatedSegment(t *testing.T) {
	timeline := models.EnrichedTimeline{
		DetectedLanguage: "en",
		Segments: []models.Segment{
			{Start: 0, End: 2, Text: "totototototo tototo toto", AvgLogprob: -0.1,
				Words: []models.Word{{Start: 0, End: 2, Text: "totototototo tototo toto", Speaker: spk("SPEAKER_00")}}},
			{Start: 2, End: 5, Text: "the patient reports chest pain", AvgLogprob: -0.1,
				Words: []models.Word{{Start: 2, End: 5, Text: "the patient reports chest pain", Speaker: spk("SPEAKER_00")}}},
		},
	}
	out := Reconstruct(timeline, []string{"en"}, DefaultPolicy())
	require.Len(t, out.Turns, 1)
	assert.Equal(t, "the patient reports chest pain", out.Turns[0].Text)
	assert.Equal(t, 1, out.Turns[0].TurnID)
}

func TestReconstruct_LowLogprobDropped(t *testing.T) {
	timeline := models.EnrichedTimeline{
		Segments: []models.Segment{
			{Start: 0, End: 2, Text: "a low confidence utterance here", AvgLogprob: -1.6,
				Words: []models.Word{{Start: 0, End: 2, Text: "word", Speaker: spk("A")}}},
		},
	}
	out := Reconstruct(timeline, nil, DefaultPolicy())
	assert.Len(t, out.Turns, 0)
}

func TestReconstruct_LogprobExactlyThresholdKept(t *testing.T) {
	timeline := models.EnrichedTimeline{
		Segments: []models.Segment{
			{Start: 0, End: 1.5, Text: "a borderline confidence utterance", AvgLogprob: -1.5,
				Words: []models.Word{{Start: 0, End: 1.5, Text: "word", Speaker: spk("A")}}},
		},
	}
	out := Reconstruct(timeline, nil, DefaultPolicy())
	require.Len(t, out.Turns, 1)
	assert.InDelta(t, 1.5, out.Turns[0].Duration, 1e-9)
}

func TestAssembleTurns_GapExactlyTwoSecondsDoesNotSplit(t *testing.T) {
	segments := []candidateSegment{
		{Segment: models.Segment{Start: 0, End: 1}, speaker: "A"},
		{Segment: models.Segment{Start: 3, End: 4}, speaker: "A"},
	}
	turns := assembleTurns(segments, DefaultPolicy())
	require.Len(t, turns, 1)
	assert.Equal(t, 4.0, turns[0].EndTime)
}

func TestAssembleTurns_GapOverTwoSecondsSplits(t *testing.T) {
	segments := []candidateSegment{
		{Segment: models.Segment{Start: 0, End: 1}, speaker: "A"},
		{Segment: models.Segment{Start: 3.01, End: 4}, speaker: "A"},
	}
	turns := assembleTurns(segments, DefaultPolicy())
	assert.Len(t, turns, 2)
}

func TestAssembleTurns_SpeakerChangeSplits(t *testing.T) {
	segments := []candidateSegment{
		{Segment: models.Segment{Start: 0, End: 1}, speaker: "A"},
		{Segment: models.Segment{Start: 1, End: 2}, speaker: "B"},
	}
	turns := assembleTurns(segments, DefaultPolicy())
	assert.Len(t, turns, 2)
}

func TestFinalizeTurns_DropsShortTurns(t *testing.T) {
	turns := []models.Turn{
		{StartTime: 0, EndTime: 0.5, Duration: 0.5},
		{StartTime: 1, EndTime: 3, Duration: 2},
	}
	out := finalizeTurns(turns, DefaultPolicy())
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].TurnID)
}

func TestMajoritySpeaker_DeterministicTieBreak(t *testing.T) {
	words := []models.Word{
		{Speaker: spk("B")},
		{Speaker: spk("A")},
	}
	s, ok := majoritySpeaker(words)
	require.True(t, ok)
	assert.Equal(t, "A", s)
}

func TestConsecutivePhraseRepeat_Detected(t *testing.T) {
	words := []string{"go", "to", "the", "er", "go", "to", "the", "er"}
	assert.True(t, consecutivePhraseRepeat(words, 2, 5))
}

func TestConsecutivePhraseRepeat_NotDetected(t *testing.T) {
	words := []string{"the", "patient", "has", "chest", "pain", "and", "cough"}
	assert.False(t, consecutivePhraseRepeat(words, 2, 5))
}

func TestTurnIDs_ContiguousAfterDrop(t *testing.T) {
	timeline := models.EnrichedTimeline{
		Segments: []models.Segment{
			{Start: 0, End: 2, Text: "chest pain complaint here", AvgLogprob: -0.1,
				Words: []models.Word{{Start: 0, End: 2, Speaker: spk("A")}}},
			{Start: 2, End: 2.2, Text: "um", AvgLogprob: -0.1},
			{Start: 5, End: 7, Text: "doctor reply about medication", AvgLogprob: -0.1,
				Words: []models.Word{{Start: 5, End: 7, Speaker: spk("B")}}},
		},
	}
	out := Reconstruct(timeline, []string{"en"}, DefaultPolicy())
	for i, turn := range out.Turns {
		assert.Equal(t, i+1, turn.TurnID)
	}
}
