package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// minTermLength is the shortest token kept by ExtractTerms
const minTermLength = 3

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// stopWords are dropped from every term set. Tokens shorter than minTermLength
// never reach this lookup, so only longer words matter here.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "his": {}, "how": {}, "its": {},
	"who": {}, "has": {}, "had": {}, "she": {}, "him": {}, "they": {},
	"them": {}, "their": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"with": {}, "from": {}, "into": {}, "onto": {}, "upon": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "will": {}, "would": {},
	"your": {}, "yours": {}, "been": {}, "have": {}, "were": {}, "there": {},
	"then": {}, "than": {}, "also": {}, "about": {},
}

// IsStopWord reports whether the lowercased token is ignored by ExtractTerms
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// ExtractTerms turns free text into the sorted, deduplicated set of searchable tokens.
func ExtractTerms(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	normalized := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(normalized) {
		if utf8.RuneCountInString(token) < minTermLength || IsStopWord(token) {
			continue
		}
		seen[token] = struct{}{}
	}

	return sortedSet(seen)
}

// mergeTerms unions term sets into one sorted set
func mergeTerms(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, term := range set {
			if term != "" {
				seen[term] = struct{}{}
			}
		}
	}
	return sortedSet(seen)
}

func sortedSet(seen map[string]struct{}) []string {
	out := make([]string, 0, len(seen))
	for term := range seen {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}
