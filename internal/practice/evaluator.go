package practice

import (
	"fmt"
	"strings"
)

// Evaluate decides whether sub answers q correctly. It has no side effects.
//
// Single choice is correct when the one selected option is flagged correct.
// Multi choice requires the selected set to equal the correct set exactly.
// Free text compares trimmed values case-insensitively. Options with neither
// text nor image are never shown, so they never count as correct.
func Evaluate(q Question, sub Submission) (bool, error) {
	switch q.Type {
	case QuestionSingleChoice:
		selected := normalizeSelection(sub.OptionIDs)
		if len(selected) == 0 {
			return false, ErrEmptySubmission
		}
		if len(selected) > 1 {
			return false, fmt.Errorf("%w: %d options selected for single-choice question %s", ErrBadSubmission, len(selected), q.ID)
		}
		for _, o := range q.Options {
			if o.ID == selected[0] {
				return o.IsCorrect && !o.Empty(), nil
			}
		}
		return false, nil

	case QuestionMultiChoice:
		selected := normalizeSelection(sub.OptionIDs)
		if len(selected) == 0 {
			return false, ErrEmptySubmission
		}
		correct := make(map[string]struct{})
		for _, o := range q.Options {
			if o.IsCorrect && !o.Empty() {
				correct[o.ID] = struct{}{}
			}
		}
		if len(selected) != len(correct) {
			return false, nil
		}
		for _, id := range selected {
			if _, ok := correct[id]; !ok {
				return false, nil
			}
		}
		return true, nil

	case QuestionFreeText:
		given := strings.TrimSpace(sub.Text)
		if given == "" {
			return false, ErrEmptySubmission
		}
		return strings.EqualFold(given, strings.TrimSpace(q.TextAnswer)), nil

	default:
		return false, fmt.Errorf("unsupported question type %q", q.Type)
	}
}

// normalizeSelection drops blank and duplicate option ids, keeping first-seen order.
func normalizeSelection(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
