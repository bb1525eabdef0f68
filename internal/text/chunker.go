package text

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CharsPerToken is the fixed characters-per-token ratio used to turn token
// budgets into character windows. Changing it changes every chunk boundary,
// and with it every chunk identifier already stored at the destination.
const CharsPerToken = 4

// ShortHashLen is the number of hex characters of the content hash that are
// embedded in a chunk identifier.
const ShortHashLen = 8

// Span is one retained segment of the input text.
// Start and End are rune offsets of the untrimmed window; Text is trimmed.
type Span struct {
	Ordinal int
	Start   int
	End     int
	Text    string
}

// Chunk splits text into overlapping windows of windowTokens tokens with
// overlapTokens tokens of overlap, approximating tokens as CharsPerToken
// characters. Windows are trimmed and empty windows are dropped.
//
// The caller must reject windowTokens <= 0 as a configuration error; Chunk
// returns nil for it.
func Chunk(text string, windowTokens, overlapTokens int) []Span {
	if text == "" || windowTokens <= 0 {
		return nil
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}

	runes := []rune(text)
	n := len(runes)
	windowChars := windowTokens * CharsPerToken
	overlapChars := overlapTokens * CharsPerToken

	var spans []Span
	start := 0
	for start < n {
		end := min(n, start+windowChars)

		trimmed := strings.TrimSpace(string(runes[start:end]))
		if trimmed != "" {
			spans = append(spans, Span{
				Ordinal: len(spans),
				Start:   start,
				End:     end,
				Text:    trimmed,
			})
		}

		if end >= n {
			break
		}

		next := max(0, end-overlapChars)
		if next <= start {
			// overlap >= window would never advance
			next = end
		}
		start = next
	}

	return spans
}

// ContentHash returns the hex SHA-256 digest of s.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ShortHash truncates a content hash for use inside identifiers.
func ShortHash(hash string) string {
	if len(hash) <= ShortHashLen {
		return hash
	}
	return hash[:ShortHashLen]
}

// ChunkID names a chunk by page revision, position and content, so the same
// revision always yields the same identifiers.
func ChunkID(pageID string, version, ordinal int, hash string) string {
	return fmt.Sprintf("conf-%s-v%d-%d-%s", pageID, version, ordinal, ShortHash(hash))
}
