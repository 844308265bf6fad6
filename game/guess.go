package game

import "strings"

// GuessMatches decides whether an impostor's guess hits the canonical
// secret. The rule is deliberately forgiving: case-insensitive exact match,
// substring in either direction, or at most two character substitutions on
// near-equal lengths.
func GuessMatches(guess, secret string) bool {
	g := strings.ToLower(strings.TrimSpace(guess))
	s := strings.ToLower(strings.TrimSpace(secret))
	if g == "" {
		return false
	}
	if g == s || strings.Contains(s, g) || strings.Contains(g, s) {
		return true
	}
	diff := len(g) - len(s)
	if diff < -2 || diff > 2 {
		return false
	}
	mismatches := 0
	for i := 0; i < len(g) && i < len(s); i++ {
		if g[i] != s[i] {
			mismatches++
		}
	}
	return mismatches <= 2
}
