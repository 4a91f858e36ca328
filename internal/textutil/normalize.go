package textutil

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minTokenRunes drops short tokens such as articles and conjunctions.
const minTokenRunes = 3

// NormalizeText lowercases text, turns punctuation and symbols into spaces,
// collapses whitespace runs to a single space, and trims the result. Letters,
// numbers, and combining marks are kept.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			return r
		}
		return ' '
	}, text)
	lowered := cases.Lower(language.Und).String(stripped)
	return strings.Join(strings.Fields(lowered), " ")
}

// Tokenize splits normalized text into tokens, filtering short tokens.
// Order and repeats are preserved.
func Tokenize(text string) []string {
	raw := strings.Fields(NormalizeText(text))
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if utf8.RuneCountInString(token) < minTokenRunes {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// UniqueTokens returns the sorted set of tokens produced by Tokenize.
func UniqueTokens(text string) []string {
	return uniqueSorted(Tokenize(text))
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ShingleRunes is the window used by Shingles.
const ShingleRunes = 3

// Shingles returns the sorted set of overlapping rune windows of width n over
// normalized content. Content shorter than n yields itself as one shingle.
// It backs the similarity digest when no tokens or identifiers were found.
func Shingles(normalized string, n int) []string {
	if normalized == "" {
		return nil
	}
	if n < 1 {
		n = ShingleRunes
	}
	runes := []rune(normalized)
	if len(runes) <= n {
		return []string{normalized}
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return uniqueSorted(out)
}
