// Package clustering groups a user's topic strings into concept
// clusters. The shipped strategy is lexical; Strategy keeps it
// swappable for an embedding-based one without touching callers.
package clustering

import (
	"sort"
	"strings"
	"unicode"
)

// Group is one cluster of topics with its display label.
type Group struct {
	Label  string
	Topics []string
}

// Strategy partitions topic strings into groups. Implementations must
// be deterministic for a given input order.
type Strategy interface {
	Cluster(topics []string) []Group
}

// similarityThreshold is the minimum Jaccard index for two topics to
// share a cluster.
const similarityThreshold = 0.5

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "de": true, "der": true, "die": true,
	"for": true, "from": true, "in": true, "intro": true, "introduction": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "und": true,
	"with": true,
}

// LexicalStrategy clusters by token overlap: two topics join when their
// token Jaccard index reaches the threshold or one string contains the
// other case-insensitively.
type LexicalStrategy struct{}

func NewLexicalStrategy() *LexicalStrategy {
	return &LexicalStrategy{}
}

// Cluster runs a greedy seed-absorb loop: pop the first unclustered
// topic as a seed, absorb every remaining topic that matches it, emit
// the group, repeat. O(n²) over the input, which stays in the tens per
// module.
func (s *LexicalStrategy) Cluster(topics []string) []Group {
	remaining := make([]string, 0, len(topics))
	seen := make(map[string]bool, len(topics))
	for _, topic := range topics {
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		remaining = append(remaining, topic)
	}

	var groups []Group
	for len(remaining) > 0 {
		seed := remaining[0]
		members := []string{seed}
		rest := remaining[:0]
		for _, candidate := range remaining[1:] {
			if related(seed, candidate) {
				members = append(members, candidate)
			} else {
				rest = append(rest, candidate)
			}
		}
		remaining = rest
		groups = append(groups, Group{Label: labelFor(members), Topics: members})
	}
	return groups
}

func related(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	return jaccard(tokenize(a), tokenize(b)) >= similarityThreshold
}

func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, token := range splitTokens(s) {
		if !stopWords[token] {
			tokens[token] = true
		}
	}
	return tokens
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// labelFor titles a group by its two most frequent non-stop tokens.
// Ties break alphabetically so regeneration over identical input is
// deterministic. A lone topic keeps its own text.
func labelFor(members []string) string {
	if len(members) == 1 {
		return members[0]
	}

	counts := map[string]int{}
	for _, member := range members {
		for _, token := range splitTokens(member) {
			if !stopWords[token] {
				counts[token]++
			}
		}
	}
	if len(counts) == 0 {
		return members[0]
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}

	for i, token := range tokens {
		tokens[i] = titleCase(token)
	}
	return strings.Join(tokens, " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
