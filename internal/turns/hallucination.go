package turns

import (
	"strings"
	"unicode"
)

// isHallucination reports whether seg should be dropped, and seen tracks
// exact-duplicate text across the whole pass so later segments can be
// rejected as repeats of an earlier kept one.
func isHallucination(seg candidateSegment, p Policy, seen map[string]bool) bool {
	text := strings.TrimSpace(seg.Text)

	if text == "" {
		return true
	}
	if len(text) < p.MinSegmentLength {
		return true
	}
	if len(text) > p.LowDiversityCharThreshold && distinctRuneCount(text) < p.LowDiversityMinUniqueChars {
		return true
	}
	if matchesBlocklist(text, p.BlocklistNgrams) {
		return true
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) > 0 {
		if hardRepetitionShare(words) > p.HardRepetitionWordShare {
			return true
		}
		if internalRepetitionShare(words) > p.InternalRepetitionWordShare {
			return true
		}
		if uniqueWordShare(words) < p.UniqueWordShareFloor {
			return true
		}
		if consecutivePhraseRepeat(words, p.PhraseRepeatMinWords, p.PhraseRepeatMaxWords) {
			return true
		}
	}

	if seg.AvgLogprob < p.MinAvgLogprob {
		return true
	}

	key := strings.ToLower(text)
	if seen[key] {
		return true
	}
	seen[key] = true
	return false
}

// distinctRuneCount counts the distinct non-whitespace characters of s.
func distinctRuneCount(s string) int {
	set := make(map[rune]struct{})
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		set[r] = struct{}{}
	}
	return len(set)
}

func matchesBlocklist(text string, blocklist []string) bool {
	lower := strings.ToLower(text)
	for _, n := range blocklist {
		if lower == strings.ToLower(n) {
			return true
		}
	}
	return false
}

// hardRepetitionShare returns the largest share of the word list occupied
// by any single word.
func hardRepetitionShare(words []string) float64 {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return float64(max) / float64(len(words))
}

// internalRepetitionShare is the same measure as hardRepetitionShare; the
// specification names both thresholds against the same "same word share"
// quantity at different cutoffs (50% hard repetition, 40% internal
// repetition), so they share an implementation.
func internalRepetitionShare(words []string) float64 {
	return hardRepetitionShare(words)
}

func uniqueWordShare(words []string) float64 {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return float64(len(set)) / float64(len(words))
}

// consecutivePhraseRepeat reports whether any contiguous word-phrase of
// length minWords..maxWords occurs, then immediately occurs again right
// after itself.
func consecutivePhraseRepeat(words []string, minWords, maxWords int) bool {
	n := len(words)
	for length := minWords; length <= maxWords; length++ {
		if n < length*2 {
			continue
		}
		for start := 0; start+2*length <= n; start++ {
			if phraseEqual(words, start, start+length, length) {
				return true
			}
		}
	}
	return false
}

func phraseEqual(words []string, a, b, length int) bool {
	for i := 0; i < length; i++ {
		if words[a+i] != words[b+i] {
			return false
		}
	}
	return true
}
