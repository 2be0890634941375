package similarity

import (
	"strings"

	"bioport/internal/naming"
	"bioport/internal/subject"
)

// Score rates how likely two subjects describe the same person, in
// [0,1]. Names carry the weight; contradicting sex kills the match
// outright, contradicting life dates push the score below any sane
// threshold, differing places only dampen it.
func Score(a, b *subject.Subject) float64 {
	name := nameScore(a, b)
	if name == 0 {
		return 0
	}
	if a.Sex != "" && b.Sex != "" && a.Sex != b.Sex {
		return 0
	}

	score := name
	if datesDisjoint(a.BirthMin, a.BirthMax, b.BirthMin, b.BirthMax) {
		score *= 0.3
	}
	if datesDisjoint(a.DeathMin, a.DeathMax, b.DeathMin, b.DeathMax) {
		score *= 0.3
	}
	if placesConflict(a.BirthPlace, b.BirthPlace) {
		score *= 0.9
	}
	if placesConflict(a.DeathPlace, b.DeathPlace) {
		score *= 0.9
	}
	if score > 1 {
		score = 1
	}
	return score
}

func nameScore(a, b *subject.Subject) float64 {
	seq := sequenceRatio(a.SortKey, b.SortKey)
	keys := keyOverlap(a.PhoneticKeys, b.PhoneticKeys)
	if seq == 0 && keys == 0 {
		return 0
	}
	return 0.5*seq + 0.5*keys
}

// sequenceRatio is the classic 2M/T similarity of two strings, with M
// the length of their longest common subsequence.
func sequenceRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// keyOverlap is the overlap coefficient of the phonetic key sets, so
// a name with a dropped given name still matches its fuller variant.
func keyOverlap(a, b []subject.Token) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t.Value] = true
	}
	shared := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t.Value] {
			continue
		}
		seen[t.Value] = true
		if setA[t.Value] {
			shared++
		}
	}
	smaller := len(setA)
	if len(seen) < smaller {
		smaller = len(seen)
	}
	return float64(shared) / float64(smaller)
}

// datesDisjoint reports whether two partial-date intervals cannot
// overlap. Unknown bounds are open, so missing data never disqualifies
// a pair.
func datesDisjoint(aMin, aMax, bMin, bMax string) bool {
	if aMin == "" && aMax == "" {
		return false
	}
	if bMin == "" && bMax == "" {
		return false
	}
	aStart, aEnd := padStart(aMin), padEnd(aMax)
	bStart, bEnd := padStart(bMin), padEnd(bMax)
	return aEnd < bStart || bEnd < aStart
}

// padStart completes a partial ISO date to the earliest day it covers.
func padStart(s string) string {
	switch len(s) {
	case 0:
		return "0000-01-01"
	case 4:
		return s + "-01-01"
	case 7:
		return s + "-01"
	default:
		return s
	}
}

// padEnd completes a partial ISO date to the latest day it covers.
func padEnd(s string) string {
	switch len(s) {
	case 0:
		return "9999-12-31"
	case 4:
		return s + "-12-31"
	case 7:
		return s + "-31"
	default:
		return s
	}
}

func placesConflict(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return naming.Fold(strings.TrimSpace(a)) != naming.Fold(strings.TrimSpace(b))
}
