// Package turns implements the turn reconstructor (C5): it collapses an
// enriched word/segment stream into a sequence of speaker turns, applying
// hallucination filters, speaker smoothing, and minimum-duration rules.
package turns

import (
	"sort"

	"pipeline/internal/models"
)

// candidateSegment carries a segment's own fields plus the majority-vote
// speaker derived in pass 2, threaded between passes without mutating the
// original Segment slice.
type candidateSegment struct {
	models.Segment
	speaker string
}

// Reconstruct runs the four-pass algorithm over an enriched timeline and
// returns the resulting LeanTranscript. detectedLanguages is the set of
// language codes observed across the contributing transcriptions (normally
// just the one EnrichedTimeline's DetectedLanguage, but callers assembling
// a multi-track job may pass more than one).
func Reconstruct(timeline models.EnrichedTimeline, detectedLanguages []string, p Policy) models.LeanTranscript {
	kept := filterHallucinations(timeline.Segments, p)
	smoothed := smoothSpeakers(kept, p)
	rawTurns := assembleTurns(smoothed, p)
	finalTurns := finalizeTurns(rawTurns, p)

	return models.LeanTranscript{
		LanguagesDetected: sortedUnique(detectedLanguages),
		Turns:             finalTurns,
	}
}

// filterHallucinations is pass 1.
func filterHallucinations(segments []models.Segment, p Policy) []candidateSegment {
	seen := make(map[string]bool)
	out := make([]candidateSegment, 0, len(segments))
	for _, seg := range segments {
		if isHallucination(candidateSegment{Segment: seg}, p, seen) {
			continue
		}
		out = append(out, candidateSegment{Segment: seg})
	}
	return out
}

// smoothSpeakers is pass 2: derive each segment's speaker by majority vote
// of its words' speakers, inheriting from a nearby preceding segment (up to
// p.SpeakerSmoothingLookback back) when there is no vote, or the default
// speaker id if none of those have one either.
func smoothSpeakers(segments []candidateSegment, p Policy) []candidateSegment {
	out := make([]candidateSegment, len(segments))
	copy(out, segments)

	for i := range out {
		spk, ok := majoritySpeaker(out[i].Words)
		if ok {
			out[i].speaker = spk
			continue
		}
		out[i].speaker = inheritSpeaker(out, i, p)
	}
	return out
}

func majoritySpeaker(words []models.Word) (string, bool) {
	counts := make(map[string]int)
	for _, w := range words {
		if w.Speaker != nil && *w.Speaker != "" {
			counts[*w.Speaker]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	best, bestCount := "", -1
	// Deterministic tie-break: the first speaker id in sorted order with
	// the highest count.
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, true
}

func inheritSpeaker(segments []candidateSegment, idx int, p Policy) string {
	for back := 1; back <= p.SpeakerSmoothingLookback; back++ {
		j := idx - back
		if j < 0 {
			break
		}
		if segments[j].speaker != "" {
			return segments[j].speaker
		}
	}
	return p.DefaultSpeaker
}

// assembleTurns is pass 3: walk segments in order, starting a new turn
// when the speaker changes or the gap since the current turn's end exceeds
// p.TurnGapSeconds.
func assembleTurns(segments []candidateSegment, p Policy) []models.Turn {
	var turns []models.Turn
	for _, seg := range segments {
		if len(turns) == 0 {
			turns = append(turns, newTurn(seg))
			continue
		}
		cur := &turns[len(turns)-1]
		gap := seg.Start - cur.EndTime
		if seg.speaker != cur.Speaker || gap > p.TurnGapSeconds {
			turns = append(turns, newTurn(seg))
			continue
		}
		cur.Text = cur.Text + " " + seg.Text
		if seg.End > cur.EndTime {
			cur.EndTime = seg.End
		}
		cur.Duration = cur.EndTime - cur.StartTime
	}
	return turns
}

func newTurn(seg candidateSegment) models.Turn {
	return models.Turn{
		Speaker:   seg.speaker,
		Text:      seg.Text,
		StartTime: seg.Start,
		EndTime:   seg.End,
		Duration:  seg.End - seg.Start,
	}
}

// finalizeTurns is pass 4: drop turns shorter than p.MinTurnDurationSeconds
// and renumber survivors 1..N in order.
func finalizeTurns(turns []models.Turn, p Policy) []models.Turn {
	out := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Duration < p.MinTurnDurationSeconds {
			continue
		}
		out = append(out, t)
	}
	for i := range out {
		out[i].TurnID = i + 1
	}
	return out
}

func sortedUnique(codes []string) []string {
	set := make(map[string]struct{})
	for _, c := range codes {
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
