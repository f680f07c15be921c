package turns

// Policy pins the thresholds the hallucination filter and turn assembler
// use. These are treated as contract, not implementation detail: the
// values below match the specification exactly and must not be changed
// except through this named block.
type Policy struct {
	// MinSegmentLength is the minimum character length after trim for a
	// segment to survive the hallucination filter.
	MinSegmentLength int

	// LowDiversityCharThreshold: segments longer than this with fewer than
	// LowDiversityMinUniqueChars distinct characters are dropped.
	LowDiversityCharThreshold  int
	LowDiversityMinUniqueChars int

	// HardRepetitionWordShare: a segment is dropped if any single word
	// occupies more than this share of its word count.
	HardRepetitionWordShare float64

	// MinAvgLogprob: segments with avg_logprob strictly less than this are
	// dropped as low-confidence.
	MinAvgLogprob float64

	// InternalRepetitionWordShare: a segment is dropped if the same word
	// occupies more than this share of its words.
	InternalRepetitionWordShare float64

	// UniqueWordShareFloor: a segment is dropped if unique-word count is
	// less than this share of total words.
	UniqueWordShareFloor float64

	// PhraseRepeatMinWords/MaxWords bound the phrase-length window checked
	// for immediate consecutive repetition.
	PhraseRepeatMinWords int
	PhraseRepeatMaxWords int

	// BlocklistNgrams is a small set of known nonsense n-grams; a segment
	// whose trimmed, lowercased text equals one of these is dropped. This
	// list is replaceable policy, not contract (see §9 design notes): the
	// literal entries may be tuned without changing the algorithm.
	BlocklistNgrams []string

	// SpeakerSmoothingLookback bounds how many preceding segments are
	// searched for a speaker to inherit when a segment has no vote.
	SpeakerSmoothingLookback int
	DefaultSpeaker           string

	// TurnGapSeconds: a new turn starts when the gap since the current
	// turn's end exceeds this value (strictly greater than).
	TurnGapSeconds float64

	// MinTurnDurationSeconds: turns shorter than this are dropped in the
	// final pass (strictly less than).
	MinTurnDurationSeconds float64
}

// DefaultPolicy returns the specification's fixed thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinSegmentLength:            3,
		LowDiversityCharThreshold:   10,
		LowDiversityMinUniqueChars:  3,
		HardRepetitionWordShare:     0.50,
		MinAvgLogprob:               -1.5,
		InternalRepetitionWordShare: 0.40,
		UniqueWordShareFloor:        0.30,
		PhraseRepeatMinWords:        2,
		PhraseRepeatMaxWords:        5,
		BlocklistNgrams: []string{
			"thank you for watching",
			"thanks for watching",
			"subscribe to my channel",
			"you you you",
		},
		SpeakerSmoothingLookback: 3,
		DefaultSpeaker:           "SPEAKER_00",
		TurnGapSeconds:           2.0,
		MinTurnDurationSeconds:   1.0,
	}
}
