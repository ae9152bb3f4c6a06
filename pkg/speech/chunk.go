package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnds are runes after which a chunk is closed even when it has room left,
// so each request carries a natural phrase.
const sentenceEnds = ".!?।॥"

// splitText breaks text into chunks of at most maxRunes runes on word boundaries.
// Words longer than maxRunes are cut. Chunks without any letter or digit are dropped.
func splitText(text string, maxRunes int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen == 0 {
			return
		}
		if chunk := cur.String(); speakable(chunk) {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
		curLen = 0
	}

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		for wordLen > maxRunes {
			flush()
			runes := []rune(word)
			cur.WriteString(string(runes[:maxRunes]))
			curLen = maxRunes
			flush()
			word = string(runes[maxRunes:])
			wordLen -= maxRunes
		}
		if wordLen == 0 {
			continue
		}

		if curLen > 0 && curLen+1+wordLen > maxRunes {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wordLen

		if last, _ := utf8.DecodeLastRuneInString(word); strings.ContainsRune(sentenceEnds, last) {
			flush()
		}
	}
	flush()
	return chunks
}

func speakable(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
