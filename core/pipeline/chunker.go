package pipeline

import (
	"math"
	"strings"

	"github.com/siherrmann/retriever/model"
)

// TokenChunker creates a chunker that splits normalized text into
// overlapping, token-bounded chunks with stable offsets. Splitting prefers
// paragraph breaks over line breaks over sentence ends over clause breaks
// over word boundaries, and never cuts mid-word unless the text has no
// whitespace at all.
//
// Chunking is deterministic: the same (text, config) pair produces
// byte-identical chunks on every run, so re-ingestion of unchanged text
// never invalidates embeddings keyed by chunk index.
func TokenChunker(config model.ChunkConfig) ChunkFunc {
	return func(text string) ([]model.Chunk, error) {
		if err := config.Validate(); err != nil {
			return nil, err
		}

		text = Normalize(text)
		if text == "" {
			return []model.Chunk{}, nil
		}

		// Offsets are rune positions into the normalized text
		runes := []rune(text)
		totalTokens := EstimateTokens(text)

		// Text that fits the budget stays whole
		if totalTokens <= config.MaxTokens {
			return []model.Chunk{{
				Index:      0,
				Text:       text,
				TokenCount: totalTokens,
				StartChar:  0,
				EndChar:    len(runes),
			}}, nil
		}

		targetChars := int(math.Round(float64(config.TargetTokens) * CharsPerToken))
		overlapChars := int(math.Round(float64(targetChars) * config.OverlapRatio))
		splitWindow := int(math.Round(float64(targetChars) * 0.2))

		var chunks []model.Chunk
		pos := 0

		for pos < len(runes) {
			prevPos := pos
			idealEnd := pos + targetChars

			var endPos int
			if idealEnd >= len(runes) {
				endPos = len(runes)
			} else {
				endPos = findSplitPoint(runes, idealEnd, splitWindow)
			}

			// The end must advance past the start
			if endPos <= pos {
				endPos = min(pos+targetChars, len(runes))
			}

			chunkStr := strings.TrimSpace(string(runes[pos:endPos]))
			tokenCount := EstimateTokens(chunkStr)

			switch {
			case chunkStr != "" && (tokenCount >= config.MinTokens || len(chunks) == 0):
				// A first chunk below MinTokens is kept anyway
				chunks = append(chunks, model.Chunk{
					Index:      len(chunks),
					Text:       chunkStr,
					TokenCount: tokenCount,
					StartChar:  pos,
					EndChar:    endPos,
				})
			case chunkStr != "":
				// Trailing chunk below MinTokens: merge into the previous
				// chunk. The merge may push the chunk above MaxTokens, up
				// to MergeTolerance * MaxTokens.
				prev := &chunks[len(chunks)-1]
				merged := strings.TrimSpace(string(runes[prev.StartChar:endPos]))
				if EstimateTokens(merged) <= int(float64(config.MaxTokens)*config.MergeTolerance) {
					prev.Text = merged
					prev.TokenCount = EstimateTokens(merged)
					prev.EndChar = endPos
				} else {
					chunks = append(chunks, model.Chunk{
						Index:      len(chunks),
						Text:       chunkStr,
						TokenCount: tokenCount,
						StartChar:  pos,
						EndChar:    endPos,
					})
				}
			}

			// Step forward, keeping an overlap with the chunk just closed
			nextPos := endPos - overlapChars
			if nextPos > prevPos {
				pos = nextPos
			} else {
				pos = endPos
			}
			if pos <= prevPos {
				pos = prevPos + 1
			}
		}

		return chunks, nil
	}
}

// DefaultChunker returns a TokenChunker with the default configuration
func DefaultChunker() ChunkFunc {
	return TokenChunker(model.DefaultChunkConfig())
}

// findSplitPoint finds the best split position near target, searching a
// window of +-window runes. Preference order: paragraph break, line break,
// sentence end, clause break, any space, hard cut at target.
func findSplitPoint(runes []rune, target int, window int) int {
	start := max(0, target-window)
	end := min(len(runes), target+window)
	region := string(runes[start:end])

	if paraBreak := strings.LastIndex(region, "\n\n"); paraBreak != -1 {
		return start + runeLen(region[:paraBreak]) + 2
	}

	if lineBreak := strings.LastIndex(region, "\n"); lineBreak != -1 {
		return start + runeLen(region[:lineBreak]) + 1
	}

	if sentenceEnd := lastSentenceEnd(region); sentenceEnd != -1 {
		return start + sentenceEnd
	}

	if clauseBreak := strings.LastIndex(region, ", "); clauseBreak != -1 {
		return start + runeLen(region[:clauseBreak]) + 2
	}

	if space := strings.LastIndex(region, " "); space != -1 {
		return start + runeLen(region[:space]) + 1
	}

	return target
}

// lastSentenceEnd returns the rune position just after the last
// ". ", "! " or "? " in region, or -1 if none exists
func lastSentenceEnd(region string) int {
	best := -1
	for _, punct := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(region, punct); idx != -1 {
			after := runeLen(region[:idx]) + 2
			if after > best {
				best = after
			}
		}
	}
	return best
}

func runeLen(s string) int {
	return len([]rune(s))
}
