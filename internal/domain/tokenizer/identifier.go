package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/corey/bayes/internal/ports"
)

// separatorRe splits on slash, underscore, hyphen, dot, whitespace and
// common punctuation.
var separatorRe = regexp.MustCompile(`[/_\-.\s,;:!?()\[\]{}"'<>=+*&|]+`)

// minIdentifierLen drops single letters, which carry no class signal.
const minIdentifierLen = 2

// Identifier splits identifiers the way programmers write them:
//  1. Split on separators ([/_\-.\s] and punctuation)
//  2. CamelCase split
//  3. Lowercase all
//  4. Discard tokens shorter than 2 runes
var Identifier ports.Tokenizer = Func(tokenizeIdentifiers)

func tokenizeIdentifiers(input string) []string {
	if len(input) == 0 {
		return nil
	}

	var tokens []string
	for _, part := range separatorRe.Split(input, -1) {
		if len(part) == 0 {
			continue
		}
		for _, tok := range splitCamelCase(part) {
			tok = strings.ToLower(tok)
			if len([]rune(tok)) >= minIdentifierLen {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

// splitCamelCase splits a string on CamelCase boundaries.
// Examples:
//
//	"getUserToken"   -> ["get", "User", "Token"]
//	"APIKey"         -> ["API", "Key"]
//	"handler404Resp" -> ["handler", "404", "Resp"]
func splitCamelCase(s string) []string {
	runes := []rune(s)
	var parts []string
	start := 0

	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]

		split := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			split = true
		case unicode.IsLetter(prev) && unicode.IsDigit(cur):
			split = true
		case unicode.IsDigit(prev) && unicode.IsLetter(cur):
			split = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur):
			// "APIKey": split before 'K' only when a lowercase rune follows.
			split = i+1 < len(runes) && unicode.IsLower(runes[i+1])
		}

		if split {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}
