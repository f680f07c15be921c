package extract

// fallbackDrugs is the small drug lexicon consulted when no generative
// model or NER capability identifies a medication.
var fallbackDrugs = []string{
	"amlodipine", "metformin", "paracetamol", "ibuprofen", "omeprazole",
	"losartan", "atorvastatin", "salbutamol", "nitroglycerin", "aspirin",
	"warfarin", "insulin", "furosemide", "lisinopril", "simvastatin",
}

// commonSymptoms is the curated keyword sweep run before the phonetic
// matcher, covering everyday phrasing a strict biomedical vocabulary
// might miss.
var commonSymptoms = []string{
	"chest pain", "headache", "fever", "cough", "nausea", "vomiting",
	"dizziness", "fatigue", "shortness of breath", "breathlessness",
	"abdominal pain", "back pain", "sore throat", "runny nose", "congestion",
	"migraines", "migraine", "blurred vision", "vision changes", "sweating",
	"pain",
}

// negationWords trigger a preceding-context negation when found in the
// last 5 tokens before a symptom mention.
var negationWords = []string{
	"no", "not", "without", "denies", "denied", "never", "absent", "negative",
}
