// Package mistakes classifies answer interactions into mistake
// categories and aggregates per-category counts. Pure functions.
package mistakes

import "strings"

type Category string

const (
	Unanswered        Category = "Unanswered"
	IncorrectAnswer   Category = "IncorrectAnswer"
	OpenTextIncorrect Category = "OpenTextIncorrect"
	OrderMismatch     Category = "OrderMismatch"
	IncorrectItems    Category = "IncorrectItems"
	MissingSelection  Category = "MissingSelection"
	ExtraSelection    Category = "ExtraSelection"
	PairingMismatch   Category = "PairingMismatch"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	OpenText       QuestionType = "open_text"
	Ordering       QuestionType = "ordering"
	MultipleSelect QuestionType = "multiple_select"
	Matching       QuestionType = "matching"
)

// List answers ("A|B|C") use '|' between items; matching pairs use '='
// inside each item ("left=right").
const (
	itemSeparator = "|"
	pairSeparator = "="
)

// openTextPassThreshold is the normalized AI-graded score at or above
// which an open-text answer counts as correct.
const openTextPassThreshold = 0.7

// Classify returns the mistake categories for one answered question, or
// an empty slice when the answer has no mistake. aiScore is the
// normalized AI grade for open-text answers, nil when ungraded.
func Classify(qType QuestionType, userAnswer, correctAnswer string, aiScore *float64) []Category {
	if strings.TrimSpace(userAnswer) == "" {
		return []Category{Unanswered}
	}

	switch qType {
	case MultipleChoice, TrueFalse:
		if !equalFold(userAnswer, correctAnswer) {
			return []Category{IncorrectAnswer}
		}
		return nil

	case OpenText:
		if aiScore != nil && *aiScore >= openTextPassThreshold {
			return nil
		}
		return []Category{OpenTextIncorrect}

	case Ordering:
		user := splitItems(userAnswer)
		correct := splitItems(correctAnswer)
		if sameSequence(user, correct) {
			return nil
		}
		// Right items in the wrong order is a different failure mode
		// than picking the wrong items; check set equality first.
		if sameSet(user, correct) {
			return []Category{OrderMismatch}
		}
		return []Category{IncorrectItems}

	case MultipleSelect:
		user := toSet(splitItems(userAnswer))
		correct := toSet(splitItems(correctAnswer))
		var cats []Category
		for item := range correct {
			if !user[item] {
				cats = append(cats, MissingSelection)
				break
			}
		}
		for item := range user {
			if !correct[item] {
				cats = append(cats, ExtraSelection)
				break
			}
		}
		return cats

	case Matching:
		user := toPairMap(splitItems(userAnswer))
		correct := toPairMap(splitItems(correctAnswer))
		if len(user) != len(correct) {
			return []Category{PairingMismatch}
		}
		for left, right := range correct {
			if user[left] != right {
				return []Category{PairingMismatch}
			}
		}
		return nil
	}

	return nil
}

// MergePatterns folds new categories into a running category→count map.
// Counts only ever increase; the map is created on first use.
func MergePatterns(existing map[string]int, cats []Category) map[string]int {
	if existing == nil {
		existing = make(map[string]int)
	}
	for _, c := range cats {
		existing[string(c)]++
	}
	return existing
}

func splitItems(s string) []string {
	parts := strings.Split(s, itemSeparator)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sameSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := toSet(a)
	for _, item := range b {
		if !set[strings.ToLower(item)] {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

func toPairMap(items []string) map[string]string {
	pairs := make(map[string]string, len(items))
	for _, item := range items {
		left, right, found := strings.Cut(item, pairSeparator)
		if !found {
			continue
		}
		pairs[strings.ToLower(strings.TrimSpace(left))] = strings.ToLower(strings.TrimSpace(right))
	}
	return pairs
}
