// Package extract implements the extractor worker (C7): it converts a
// conversational transcript into a structured clinical record via either a
// generative model or a deterministic rule fallback.
package extract

import (
	"regexp"
	"strings"

	"pipeline/internal/models"
	"pipeline/internal/transcript/phonetic"
)

// RuleExtractor is the deterministic pattern-based strategy, used when the
// generative extractor is unavailable or exhausts its retries.
type RuleExtractor struct {
	matcher *phonetic.Matcher
}

// NewRuleExtractor returns a RuleExtractor with the default phonetic
// thresholds.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{matcher: phonetic.New()}
}

var sentenceSplit = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// Extract runs all deterministic extractors over the flattened transcript
// text and returns a ClinicalRecord with the rule-strategy summary
// sentinel.
func (r *RuleExtractor) Extract(flattened string) *models.ClinicalRecord {
	chief := extractChiefComplaint(flattened)
	symptomsPresent, symptomsNegated := r.extractSymptoms(flattened)
	onset := extractTemporal(flattened)
	allergies := extractAllergies(flattened)
	meds := r.extractCurrentMeds(flattened)
	primaryDx := extractPrimaryDiagnosis(flattened)
	rxDrug, rxDose := extractRx(flattened, meds)
	followUp := extractFollowUp(flattened)
	redFlags := extractRedFlags(flattened)

	sentinel := models.RuleSummarySentinel
	return &models.ClinicalRecord{
		Summary:          &sentinel,
		ChiefComplaint:   chief,
		SymptomsPresent:  dedupeLower(symptomsPresent),
		SymptomsNegated:  dedupeLower(symptomsNegated),
		OnsetOrDuration:  onset,
		AllergySubstance: dedupeLower(allergies),
		MedsCurrent:      dedupeLower(meds),
		ConditionsPast:   []string{},
		PrimaryDiagnosis: primaryDx,
		RxDrug:           rxDrug,
		RxDose:           rxDose,
		FollowUp:         followUp,
		RedFlags:         dedupeLower(redFlags),
	}
}

func extractChiefComplaint(text string) *string {
	sentences := sentenceSplit.Split(strings.TrimSpace(text), -1)
	if len(sentences) == 0 {
		return nil
	}
	first := strings.TrimSpace(sentences[0])
	if first == "" {
		return nil
	}
	if len(first) > 120 {
		first = first[:117] + "..."
	}
	return &first
}

var temporalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:for|since)\s+\d+\s*(?:day|days|week|weeks|month|months|hour|hours)\b`),
	regexp.MustCompile(`(?i)\byesterday\b`),
	regexp.MustCompile(`(?i)\blast night\b`),
	regexp.MustCompile(`(?i)\bthis morning\b`),
	regexp.MustCompile(`(?i)\btoday\b`),
	regexp.MustCompile(`(?i)\b\d+\s*(?:day|days|week|weeks|month|months|hour|hours)\s*(?:ago)?\b`),
}

func extractTemporal(text string) *string {
	for _, p := range temporalPatterns {
		if m := p.FindString(text); m != "" {
			s := strings.TrimSpace(m)
			return &s
		}
	}
	return nil
}

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)follow\s+up\s+(?:in|after)\s+[^.]+`),
	regexp.MustCompile(`(?i)review\s+(?:in|after)\s+[^.]+`),
	regexp.MustCompile(`(?i)see\s+you\s+(?:in|after)\s+[^.]+`),
	regexp.MustCompile(`(?i)return\s+(?:in|after)\s+[^.]+`),
}

func extractFollowUp(text string) *string {
	for _, p := range followUpPatterns {
		if m := p.FindString(text); m != "" {
			s := strings.TrimSpace(m)
			return &s
		}
	}
	return nil
}

var redFlagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)go to (?:the\s+)?(?:ER|emergency|A&E|hospital)`),
	regexp.MustCompile(`(?i)return immediately`),
	regexp.MustCompile(`(?i)if\s+(?:worse|symptoms\s+worsen|worsen)`),
	regexp.MustCompile(`(?i)severe\s+(?:chest\s+pain|breathlessness|difficulty\s+breathing)`),
	regexp.MustCompile(`(?i)chest\s+pain\s+at\s+rest`),
}

func extractRedFlags(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range redFlagPatterns {
		for _, m := range p.FindAllString(text, -1) {
			key := strings.ToLower(strings.TrimSpace(m))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(m))
		}
	}
	return out
}

var allergyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)allergic\s+to\s+([^.,;]+)`),
	regexp.MustCompile(`(?i)allergy\s+to\s+([^.,;]+)`),
	regexp.MustCompile(`(?i)has\s+allergy\s+to\s+([^.,;]+)`),
}

var andSplit = regexp.MustCompile(`(?i)\s+and\s+`)

func extractAllergies(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range allergyPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			allergy := strings.ToLower(strings.TrimSpace(m[1]))
			allergy = andSplit.ReplaceAllString(allergy, ", ")
			if allergy == "" || seen[allergy] {
				continue
			}
			seen[allergy] = true
			out = append(out, allergy)
		}
	}
	return out
}

var dosePattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|puffs?|tablets?|capsules?)\b`)
var freqPattern = regexp.MustCompile(`(?i)\b(?:bid|tid|qid|q\d+h|once\s+daily|twice\s+daily|three\s+times\s+daily|qhs|prn|as\s+needed)\b`)
var durationPattern = regexp.MustCompile(`(?i)\bfor\s+\d+\s+(?:day|days|week|weeks)\b`)

// extractRx finds the last sentence mentioning a known medication and pulls
// its dose/frequency/duration.
func extractRx(text string, knownMeds []string) (rxDrug, rxDose *string) {
	sentences := sentenceSplit.Split(text, -1)

	lastDrugSentence := ""
	lastDrug := ""
	for _, sent := range sentences {
		lower := strings.ToLower(sent)
		for _, drug := range fallbackDrugs {
			if strings.Contains(lower, drug) {
				lastDrugSentence = sent
				lastDrug = drug
			}
		}
		for _, drug := range knownMeds {
			if drug != "" && strings.Contains(lower, drug) {
				lastDrugSentence = sent
				lastDrug = drug
			}
		}
	}
	if lastDrug == "" {
		return nil, nil
	}

	var parts []string
	if m := dosePattern.FindString(lastDrugSentence); m != "" {
		parts = append(parts, m)
	}
	if m := freqPattern.FindString(lastDrugSentence); m != "" {
		parts = append(parts, m)
	}
	if m := durationPattern.FindString(lastDrugSentence); m != "" {
		parts = append(parts, m)
	}

	drug := lastDrug
	var dose *string
	if len(parts) > 0 {
		d := strings.Join(parts, " ")
		dose = &d
	}
	return &drug, dose
}

var dxPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:diagnosis|impression|assessment|likely|suspect|consistent\s+with)\s*[:\-]?\s*([^.]+)`),
	regexp.MustCompile(`(?i)(?:diagnosed\s+with|likely\s+to\s+be)\s+([^.]+)`),
	regexp.MustCompile(`(?i)(?:appears\s+to\s+be|seems\s+to\s+be)\s+([^.]+)`),
}

var trailingAndComma = regexp.MustCompile(`(?i)\s*(?:and|,).*$`)

func extractPrimaryDiagnosis(text string) *string {
	for _, p := range dxPatterns {
		matches := p.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		last := matches[len(matches)-1][1]
		dx := strings.ToLower(strings.TrimSpace(last))
		dx = trailingAndComma.ReplaceAllString(dx, "")
		return &dx
	}
	return nil
}

func (r *RuleExtractor) extractCurrentMeds(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	seen := make(map[string]bool)
	for _, drug := range fallbackDrugs {
		if strings.Contains(lower, drug) && !seen[drug] {
			seen[drug] = true
			out = append(out, drug)
		}
	}
	return out
}

// extractSymptoms runs the curated keyword sweep with negation detection,
// then a phonetic fuzzy pass that catches near-miss ASR spellings of the
// same lexicon (e.g. "brethlessness" for "breathlessness").
func (r *RuleExtractor) extractSymptoms(text string) (present, negated []string) {
	lower := strings.ToLower(text)
	presentSeen := make(map[string]bool)
	negatedSeen := make(map[string]bool)

	for _, symptom := range commonSymptoms {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(symptom) + `\b`)
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			negatedHere := isNegatedContext(lower, loc[0])
			if negatedHere {
				if !negatedSeen[symptom] {
					negatedSeen[symptom] = true
					negated = append(negated, symptom)
				}
			} else {
				if !presentSeen[symptom] {
					presentSeen[symptom] = true
					present = append(present, symptom)
				}
			}
		}
	}

	for _, token := range fuzzyCandidateTokens(text) {
		corrected, _, matched := r.matcher.Match(token, commonSymptoms)
		if !matched || presentSeen[corrected] || negatedSeen[corrected] {
			continue
		}
		idx := strings.Index(lower, strings.ToLower(token))
		if idx < 0 {
			continue
		}
		if isNegatedContext(lower, idx) {
			negatedSeen[corrected] = true
			negated = append(negated, corrected)
		} else {
			presentSeen[corrected] = true
			present = append(present, corrected)
		}
	}

	return deduplicateSubstrings(present), deduplicateSubstrings(negated)
}

// isNegatedContext reports whether any negation word occurs in the last 5
// tokens preceding byteIdx in lower.
func isNegatedContext(lower string, byteIdx int) bool {
	start := byteIdx - 50
	if start < 0 {
		start = 0
	}
	before := lower[start:byteIdx]
	tokens := strings.Fields(before)
	if len(tokens) > 5 {
		tokens = tokens[len(tokens)-5:]
	}
	for _, t := range tokens {
		for _, neg := range negationWords {
			if t == neg {
				return true
			}
		}
	}
	return false
}

// fuzzyCandidateTokens returns 1-2 word n-grams from text that aren't
// already an exact lexicon hit, as candidates for the phonetic pass.
func fuzzyCandidateTokens(text string) []string {
	words := strings.Fields(text)
	var out []string
	for i, w := range words {
		out = append(out, w)
		if i+1 < len(words) {
			out = append(out, w+" "+words[i+1])
		}
	}
	return out
}

// deduplicateSubstrings removes any symptom that is a strict substring of
// a longer one in the same list.
func deduplicateSubstrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		isSubstring := false
		for _, other := range list {
			if s != other && strings.Contains(other, s) && len(other) > len(s) {
				isSubstring = true
				break
			}
		}
		if !isSubstring {
			out = append(out, s)
		}
	}
	return out
}

func dedupeLower(list []string) []string {
	if list == nil {
		return []string{}
	}
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		l := strings.ToLower(strings.TrimSpace(s))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
