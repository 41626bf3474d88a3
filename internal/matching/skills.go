package matching

import (
	"math"
	"strings"
)

// NeutralScore is returned when one of the skill lists carries no signal.
const NeutralScore = 50

// Overlap counts how many target skills are covered by the source skills and
// converts the ratio into a 0-100 score. Matching is case-insensitive and
// accepts containment in either direction, so "React" matches "React.js".
// An empty list on either side yields NeutralScore with zero matches.
func Overlap(target, source []string) (score, matched int) {
	if len(target) == 0 || len(source) == 0 {
		return NeutralScore, 0
	}

	normalized := make([]string, 0, len(source))
	for _, s := range source {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(s)))
	}

	for _, t := range target {
		needle := strings.ToLower(strings.TrimSpace(t))
		for _, s := range normalized {
			if containsEither(needle, s) {
				matched++
				break
			}
		}
	}

	ratio := float64(matched) / float64(len(target))
	return Clamp(int(math.Round(ratio * 100))), matched
}

// Score is Overlap without the match count.
func Score(target, source []string) int {
	score, _ := Overlap(target, source)
	return score
}

// Clamp bounds a score to [0,100].
func Clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
