// Package glob implements wildcard matching used for model-id routing and
// payload-rule model matchers. It supports the two classic shell wildcards:
// '*' (any substring, including empty) and '?' (exactly one byte).
package glob

// Match reports whether text matches pattern. '*' matches any substring
// (including the empty one); '?' matches exactly one byte; every other byte
// must match literally. Matching is byte-oriented, so multi-byte runes are
// compared as their constituent bytes.
func Match(pattern, text string) bool {
	p, t := 0, 0
	starP, starT := -1, -1

	for t < len(text) {
		if p < len(pattern) && (pattern[p] == '?' || pattern[p] == text[t]) {
			p++
			t++
			continue
		}
		if p < len(pattern) && pattern[p] == '*' {
			starP = p
			starT = t
			p++
			continue
		}
		if starP != -1 {
			starT++
			p = starP + 1
			t = starT
			continue
		}
		return false
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// MatchAny reports whether text matches any of the given patterns.
func MatchAny(patterns []string, text string) bool {
	for _, p := range patterns {
		if Match(p, text) {
			return true
		}
	}
	return false
}
