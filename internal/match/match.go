// Package match resolves a mistyped model name against a bulk listing using
// Ratcliff/Obershelp similarity.
package match

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// CloseMatchCutoff is the minimum ratio for the first, close-match pass.
	CloseMatchCutoff = 0.5
	// CloseMatchLimit is how many close matches the first pass keeps.
	CloseMatchLimit = 3
	// FallbackThreshold is the ratio the second pass must exceed.
	FallbackThreshold = 0.4
)

// chars splits s into one-rune elements for the sequence matcher.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Ratio returns the similarity of a and b in [0, 1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

type scored struct {
	score float64
	name  string
}

// CloseMatches returns up to n candidates whose similarity to word is at least
// cutoff, best first. Ties keep the later candidate first, as a max-heap would.
func CloseMatches(word string, candidates []string, n int, cutoff float64) []string {
	if n <= 0 {
		return nil
	}
	m := difflib.NewMatcher(nil, nil)
	m.SetSeq2(chars(word))
	var hits []scored
	for _, c := range candidates {
		m.SetSeq1(chars(c))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		if r := m.Ratio(); r >= cutoff {
			hits = append(hits, scored{score: r, name: c})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name > hits[j].name
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

// Closest returns the best approximate match for query, or false when nothing
// is similar enough. The first pass is case-sensitive close matching; the
// second compares lower-cased names and keeps the single best ratio.
func Closest(query string, candidates []string) (string, bool) {
	if hits := CloseMatches(query, candidates, CloseMatchLimit, CloseMatchCutoff); len(hits) > 0 {
		return hits[0], true
	}

	best, bestRatio := "", 0.0
	q := strings.ToLower(query)
	for _, c := range candidates {
		if r := Ratio(q, strings.ToLower(c)); r > bestRatio {
			best, bestRatio = c, r
		}
	}
	if bestRatio > FallbackThreshold {
		return best, true
	}
	return "", false
}
