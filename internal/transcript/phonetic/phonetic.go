// Package phonetic matches ASR-transcribed words against a clinical term
// lexicon (drug names, symptom phrases) using Double Metaphone phonetic
// encoding combined with Jaro-Winkler string similarity.
//
// The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each word in the input and for each lexicon entry. If any code from
//     the input overlaps with any code from an entry, the entry becomes a
//     phonetic candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the entry with the
//     highest Jaro-Winkler similarity (computed on the original strings,
//     case-insensitive) is selected, provided its score exceeds the
//     configurable phonetic threshold.
//
//     When no phonetic candidate is found, a secondary pass tests pure
//     Jaro-Winkler similarity against all entries using a higher fuzzy
//     threshold (default 0.85).
//
// Multi-word lexicon entries (e.g. "chest pain") are supported: the matcher
// computes phonetic codes per word and considers the best pairwise score
// across all word pairs when ranking candidates.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a Matcher.
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched entry to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is a phonetic lexicon matcher. All methods are safe for
// concurrent use; the Matcher is read-only after construction.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Matcher configured with the supplied options. Default
// thresholds are 0.70 for phonetic matches and 0.85 for fuzzy fallback
// matches.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match attempts to find the lexicon entry most phonetically similar to
// word.
//
// word may be a single word or a space-separated phrase (n-gram). When
// word contains multiple tokens, the matcher checks whether any token
// phonetically aligns with any token in a multi-word entry, then ranks by
// Jaro-Winkler on the full strings.
//
// When matched is false, corrected equals word unchanged and confidence
// is 0.
func (m *Matcher) Match(word string, entries []string) (corrected string, confidence float64, matched bool) {
	if len(entries) == 0 || strings.TrimSpace(word) == "" {
		return word, 0, false
	}

	wordLower := strings.ToLower(strings.TrimSpace(word))
	wordTokens := strings.Fields(wordLower)

	inputCodes := codesForTokens(wordTokens)

	type candidate struct {
		entry    string
		score    float64
		phonetic bool
	}

	var best candidate

	for _, entry := range entries {
		entryLower := strings.ToLower(strings.TrimSpace(entry))
		if entryLower == "" {
			continue
		}
		entryTokens := strings.Fields(entryLower)

		entryCodes := codesForTokens(entryTokens)
		phoneticMatch := codesOverlap(inputCodes, entryCodes)

		jwScore := bestJWScore(wordTokens, entryTokens, wordLower, entryLower)

		if phoneticMatch {
			if jwScore >= m.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{entry: entry, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= m.fuzzyThreshold && jwScore > best.score {
				best = candidate{entry: entry, score: jwScore, phonetic: false}
			}
		}
	}

	if best.entry != "" {
		return best.entry, best.score, true
	}
	return word, 0, false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or
// contains no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the
// input and the entry using three strategies:
//
//  1. Full-string comparison.
//  2. Space-stripped comparison.
//  3. Best pairwise word comparison — the maximum JW score between any
//     input token and any entry token.
func bestJWScore(inputTokens, entryTokens []string, inputFull, entryFull string) float64 {
	score := matchr.JaroWinkler(inputFull, entryFull, false)

	if len(inputTokens) > 1 || len(entryTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(entryTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, et := range entryTokens {
			if s := matchr.JaroWinkler(it, et, false); s > score {
				score = s
			}
		}
	}

	return score
}
