package safety

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTextLength - верхняя граница длины текста в рунах.
const MaxTextLength = 10000

// управляющие символы, кроме \t \n \r
var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// SanitizeText удаляет управляющие символы, обрезает до maxLen рун и пробелы по краям.
// maxLen <= 0 означает MaxTextLength.
func SanitizeText(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = MaxTextLength
	}
	if utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		text = string(runes[:maxLen])
	}
	text = controlChars.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
