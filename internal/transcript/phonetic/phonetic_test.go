package phonetic_test

import (
	"testing"

	"pipeline/internal/transcript/phonetic"
)

func TestMatcher_SingleWordMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	lexicon := []string{"amlodipine", "metformin", "nitroglycerin"}

	corrected, conf, matched := m.Match("amlodapine", lexicon)
	if !matched {
		t.Fatalf("Match(%q, lexicon): matched=false, want true", "amlodapine")
	}
	if corrected != "amlodipine" {
		t.Errorf("Match(%q): corrected=%q, want %q", "amlodapine", corrected, "amlodipine")
	}
	if conf < 0.7 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.7", "amlodapine", conf)
	}
}

func TestMatcher_MultiWordEntryMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	lexicon := []string{"shortness of breath", "chest pain", "headache"}

	corrected, conf, matched := m.Match("shortness of breth", lexicon)
	if !matched {
		t.Fatalf("Match(%q, lexicon): matched=false, want true", "shortness of breth")
	}
	if corrected != "shortness of breath" {
		t.Errorf("Match(%q): corrected=%q, want %q", "shortness of breth", corrected, "shortness of breath")
	}
	if conf < 0.7 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.7", "shortness of breth", conf)
	}
}

func TestMatcher_NoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	lexicon := []string{"amlodipine", "metformin"}

	corrected, conf, matched := m.Match("umbrella", lexicon)
	if matched {
		t.Fatalf("Match(%q, lexicon): matched=true, want false", "umbrella")
	}
	if corrected != "umbrella" {
		t.Errorf("Match(%q): corrected=%q, want original word %q", "umbrella", corrected, "umbrella")
	}
	if conf != 0 {
		t.Errorf("Match(%q): confidence=%f, want 0", "umbrella", conf)
	}
}

func TestMatcher_CaseInsensitivity(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	lexicon := []string{"amlodipine"}

	corrected, _, matched := m.Match("AMLODIPINE", lexicon)
	if !matched {
		t.Fatalf("Match(%q, lexicon): matched=false, want true", "AMLODIPINE")
	}
	if corrected != "amlodipine" {
		t.Errorf("Match(%q): corrected=%q, want %q", "AMLODIPINE", corrected, "amlodipine")
	}
}

func TestMatcher_ExactMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	lexicon := []string{"metformin", "amlodipine"}

	corrected, conf, matched := m.Match("metformin", lexicon)
	if !matched {
		t.Fatalf("Match(%q, lexicon): matched=false, want true", "metformin")
	}
	if corrected != "metformin" {
		t.Errorf("Match(%q): corrected=%q, want %q", "metformin", corrected, "metformin")
	}
	if conf < 0.9 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.9 for exact match", "metformin", conf)
	}
}

func TestMatcher_PhoneticThresholdFiltering(t *testing.T) {
	t.Parallel()

	m := phonetic.New(
		phonetic.WithPhoneticThreshold(0.99),
		phonetic.WithFuzzyThreshold(0.99),
	)
	lexicon := []string{"amlodipine"}

	_, _, matched := m.Match("amlodapine", lexicon)
	if matched {
		t.Fatal("Match with threshold=0.99 should reject near-matches, got matched=true")
	}
}

func TestMatcher_EmptyEntries(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, conf, matched := m.Match("amlodipine", nil)
	if matched {
		t.Fatal("Match with nil entries should return matched=false")
	}
	if corrected != "amlodipine" {
		t.Errorf("corrected=%q, want original", corrected)
	}
	if conf != 0 {
		t.Errorf("conf=%f, want 0", conf)
	}
}

func TestMatcher_EmptyWord(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, conf, matched := m.Match("", []string{"amlodipine"})
	if matched {
		t.Fatal("Match with empty word should return matched=false")
	}
	if corrected != "" {
		t.Errorf("corrected=%q, want empty string", corrected)
	}
	if conf != 0 {
		t.Errorf("conf=%f, want 0", conf)
	}
}

func TestWithOptions(t *testing.T) {
	t.Parallel()

	m := phonetic.New(
		phonetic.WithPhoneticThreshold(0.75),
		phonetic.WithFuzzyThreshold(0.90),
	)
	if m == nil {
		t.Fatal("New returned nil")
	}
}
