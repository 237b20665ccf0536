// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoMatch is returned when there is nothing to match against.
var ErrNoMatch = errors.New("channels: no candidate channels")

// Score is a similarity in [0, 100].
type Score int

// Match returns the candidate whose key is most similar to spoken. Ties go
// to the earliest candidate.
func Match(spoken string, candidates []Channel, key func(Channel) string) (Channel, Score, error) {
	if len(candidates) == 0 {
		return Channel{}, 0, ErrNoMatch
	}
	query := normalize(spoken)

	best, bestScore := 0, Score(-1)
	for i, c := range candidates {
		s := weightedRatio(query, normalize(key(c)))
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return candidates[best], bestScore, nil
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize case-folds, strips diacritics and reduces punctuation to single
// spaces.
func normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func weightedRatio(a, b string) Score {
	if a == "" || b == "" {
		return 0
	}
	best := ratio(a, b)
	if ts := ratio(sortTokens(a), sortTokens(b)); ts > best {
		best = ts
	}
	if pr := partialRatio(a, b) * 9 / 10; pr > best {
		best = pr
	}
	return Score(best)
}

// ratio is 100 * (1 - indel distance / combined length).
func ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	d := indelDistance(ra, rb)
	return (100*(total-d) + total/2) / total
}

// partialRatio scores the shorter string against its best-aligned window in
// the longer one.
func partialRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	short := string(ra)
	best := 0
	for i := 0; i+len(ra) <= len(rb); i++ {
		if r := ratio(short, string(rb[i:i+len(ra)])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// indelDistance is the Levenshtein distance with substitutions costing two.
func indelDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
