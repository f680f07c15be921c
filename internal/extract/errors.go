package extract

import "errors"

// ErrExtract wraps LLM extraction failures that exhausted their retries
// and fell through to the rule strategy. Rule-strategy panics are
// recovered and produce an empty ClinicalRecord rather than this error.
var ErrExtract = errors.New("extract: llm extraction failed")
