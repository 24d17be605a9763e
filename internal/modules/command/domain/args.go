package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Tokenize splits a chat message into words. Single or double quotes group
// words and a backslash escapes the next rune outside single quotes.
func Tokenize(input string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
		escaped bool
	)
	for _, r := range input {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: %c", ErrUnbalancedQuote, quote)
	}
	if escaped {
		current.WriteRune('\\')
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// Quote renders tokens back into a string Tokenize reads identically.
func Quote(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" && !strings.ContainsAny(t, " \t\n'\"\\") {
			parts = append(parts, t)
			continue
		}
		parts = append(parts, "'"+strings.ReplaceAll(t, "'", `'"'"'`)+"'")
	}
	return strings.Join(parts, " ")
}
