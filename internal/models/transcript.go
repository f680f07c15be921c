package models

// Word is a single timestamped token within a Segment. Speaker is populated
// by the aligner; it is nil until C4 runs.
type Word struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker *string `json:"speaker,omitempty"`
}

// Segment is a contiguous span of ASR output. Segments from one
// transcription are sorted by Start ascending and non-overlapping.
type Segment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Words       []Word  `json:"words"`
	AvgLogprob  float64 `json:"avg_logprob"`
}

// SpeakerSpan is a diarizer-produced speaker-homogeneous time range. Spans
// may overlap; overlaps are resolved by majority assignment (see the
// aligner's word-assignment algorithm).
type SpeakerSpan struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker_id"`
}

// EnrichedTimeline is the join of the segment stream with the speaker-span
// stream: every word in every segment carries a speaker id or nil.
type EnrichedTimeline struct {
	Segments         []Segment `json:"segments"`
	DetectedLanguage string    `json:"detected_language"`
}

// Turn is a maximal contiguous stretch of speech by one speaker, as
// reconstructed from an EnrichedTimeline.
type Turn struct {
	TurnID    int     `json:"turn_id"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
}

// LeanTranscript is the canonical hand-off between turn reconstruction and
// the optional translate/extract stages.
type LeanTranscript struct {
	LanguagesDetected []string `json:"languages_detected"`
	Turns             []Turn   `json:"turns"`
}

// TranslatedTranscript has the same shape as LeanTranscript with
// LanguagesDetected forced to ["en"] and all turn text in English. TurnIDs
// and speaker labels are preserved from the input.
type TranslatedTranscript struct {
	LanguagesDetected []string `json:"languages_detected"`
	Turns             []Turn   `json:"turns"`
}

// IsEnglishOnly reports whether the transcript is already entirely English,
// the translator's fast-path condition.
func (t LeanTranscript) IsEnglishOnly() bool {
	return len(t.LanguagesDetected) == 1 && t.LanguagesDetected[0] == "en"
}
