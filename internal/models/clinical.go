package models

// RuleSummarySentinel is the constant summary value populated by the rule
// extraction strategy, which has no generative model to produce free text.
const RuleSummarySentinel = "extracted via rule-based fallback (no generative model)"

// ClinicalRecord is the structured clinical record produced by the
// extractor. All string fields may be nil; all list fields default to
// empty. Drug and disease names are lowercase; lists are de-duplicated.
type ClinicalRecord struct {
	Summary          *string  `json:"summary"`
	ChiefComplaint   *string  `json:"chief_complaint"`
	SymptomsPresent  []string `json:"symptoms_present"`
	SymptomsNegated  []string `json:"symptoms_negated"`
	OnsetOrDuration  *string  `json:"onset_or_duration"`
	AllergySubstance []string `json:"allergy_substance"`
	MedsCurrent      []string `json:"meds_current"`
	ConditionsPast   []string `json:"conditions_past"`
	PrimaryDiagnosis *string  `json:"primary_diagnosis"`
	RxDrug           *string  `json:"rx_drug"`
	RxDose           *string  `json:"rx_dose"`
	FollowUp         *string  `json:"follow_up"`
	RedFlags         []string `json:"red_flags"`
	Metadata         map[string]any `json:"_metadata,omitempty"`
}

// NewEmptyClinicalRecord returns a ClinicalRecord with all list fields
// initialized to empty (never nil) slices and the rule sentinel set, the
// shape returned when the rule strategy's own extractors panic or the LLM
// strategy exhausts its retries without a fallback result.
func NewEmptyClinicalRecord() *ClinicalRecord {
	sentinel := RuleSummarySentinel
	return &ClinicalRecord{
		Summary:          &sentinel,
		SymptomsPresent:  []string{},
		SymptomsNegated:  []string{},
		AllergySubstance: []string{},
		MedsCurrent:      []string{},
		ConditionsPast:   []string{},
		RedFlags:         []string{},
	}
}
