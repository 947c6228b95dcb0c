package pipeline

import "math"

// CharsPerToken is the calibration constant for the token estimate.
// OpenAI-style tokenizers average ~4 chars/token for English and ~3 for
// Hebrew and mixed content; 3.5 is a safe middle ground for the bilingual
// corpora this library handles. Validated against both scripts so chunks
// are neither systematically over- nor under-sized.
const CharsPerToken = 3.5

// EstimateTokens approximates the language-model token count of text
// without invoking a tokenizer, which would be too expensive per chunk
// boundary decision during ingestion. The estimate is ceil(runes/3.5):
// zero for empty input, never negative, monotonically non-decreasing in
// input length. It is a named approximation and must not be used where
// exact token accounting is required (hard context-window limits).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len([]rune(text))) / CharsPerToken))
}
