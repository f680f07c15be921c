package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline/internal/models"
)

func turn(id int, speaker, text string) models.Turn {
	return models.Turn{TurnID: id, Speaker: speaker, Text: text}
}

func TestExtractor_ClinicalAcceptanceCase(t *testing.T) {
	turns := []models.Turn{
		turn(1, "SPEAKER_01", "I've had chest pain for 2 days, worse on exertion, no fever or cough."),
		turn(2, "SPEAKER_00", "Any allergies?"),
		turn(3, "SPEAKER_01", "I'm allergic to penicillin."),
		turn(4, "SPEAKER_00", "Current meds?"),
		turn(5, "SPEAKER_01", "Amlodipine at night."),
		turn(6, "SPEAKER_00", "Likely diagnosis: stable angina. I'll prescribe nitroglycerin 0.4 mg sublingual PRN chest pain, review in one week. If chest pain at rest or severe breathlessness, go to ER immediately."),
	}

	e := NewRuleOnlyExtractor()
	record := e.Extract(context.Background(), turns)

	require.NotNil(t, record.ChiefComplaint)
	assert.Contains(t, *record.ChiefComplaint, "chest pain")

	assert.Contains(t, record.SymptomsPresent, "chest pain")
	assert.Contains(t, record.SymptomsNegated, "fever")
	assert.Contains(t, record.SymptomsNegated, "cough")

	require.NotNil(t, record.OnsetOrDuration)
	assert.Contains(t, *record.OnsetOrDuration, "2 days")

	assert.Contains(t, record.AllergySubstance, "penicillin")
	assert.Contains(t, record.MedsCurrent, "amlodipine")

	require.NotNil(t, record.PrimaryDiagnosis)
	assert.Contains(t, *record.PrimaryDiagnosis, "stable angina")

	require.NotNil(t, record.RxDrug)
	assert.Equal(t, "nitroglycerin", *record.RxDrug)

	require.NotNil(t, record.RxDose)
	assert.Contains(t, *record.RxDose, "0.4 mg")
	assert.Contains(t, strings.ToLower(*record.RxDose), "prn")

	require.NotNil(t, record.FollowUp)
	assert.Contains(t, *record.FollowUp, "review in")
	assert.Contains(t, *record.FollowUp, "one week")

	found := false
	for _, rf := range record.RedFlags {
		if strings.Contains(strings.ToLower(rf), "go to er") {
			found = true
		}
	}
	assert.True(t, found, "expected a red flag matching 'go to ER', got %v", record.RedFlags)

	assert.Equal(t, models.RuleSummarySentinel, *record.Summary)
}

func TestExtractor_RulePathPurity(t *testing.T) {
	turns := []models.Turn{turn(1, "SPEAKER_00", "Patient reports headache since yesterday, no nausea.")}
	e := NewRuleOnlyExtractor()

	first := e.Extract(context.Background(), turns)
	second := e.Extract(context.Background(), turns)

	assert.Equal(t, first, second)
}

func TestExtractor_EmptyTranscriptProducesEmptyLists(t *testing.T) {
	e := NewRuleOnlyExtractor()
	record := e.Extract(context.Background(), nil)

	assert.Empty(t, record.SymptomsPresent)
	assert.Empty(t, record.SymptomsNegated)
	assert.Empty(t, record.AllergySubstance)
	assert.Nil(t, record.ChiefComplaint)
}

func TestParseClinicalJSON_BareObject(t *testing.T) {
	record, err := parseClinicalJSON(`{"summary":"s","chief_complaint":"chest pain","symptoms_present":["chest pain"],"symptoms_negated":[],"allergy_substance":[],"meds_current":["Amlodipine"],"conditions_past":[],"red_flags":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "chest pain", *record.ChiefComplaint)
	assert.Equal(t, []string{"amlodipine"}, record.MedsCurrent)
}

func TestParseClinicalJSON_MarkdownFenced(t *testing.T) {
	content := "Here you go:\n```json\n{\"summary\":\"s\",\"symptoms_present\":[],\"symptoms_negated\":[],\"allergy_substance\":[],\"meds_current\":[],\"conditions_past\":[],\"red_flags\":[]}\n```"
	record, err := parseClinicalJSON(content)
	require.NoError(t, err)
	assert.Equal(t, "s", *record.Summary)
}

func TestParseClinicalJSON_InvalidReturnsError(t *testing.T) {
	_, err := parseClinicalJSON("not json at all")
	require.Error(t, err)
}
