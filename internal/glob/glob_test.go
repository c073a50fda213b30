package glob

import "testing"

func TestMatchWildcards(t *testing.T) {
	cases := []struct {
		pattern, text string
		want          bool
	}{
		{"*", "anything", true},
		{"", "", true},
		{"", "x", false},
		{"a*b", "ab", true},
		{"a*b", "axxxb", true},
		{"a*b", "ba", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"claude-*", "claude-sonnet-4", true},
		{"claude-*", "gpt-4", false},
	}
	for _, c := range cases {
		if got := Match(c.pattern, c.text); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.text, got, c.want)
		}
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"gpt-3*", "claude-opus*"}
	if !MatchAny(patterns, "claude-opus-4") {
		t.Fatal("expected claude-opus-4 to match claude-opus*")
	}
	if MatchAny(patterns, "gemini-pro") {
		t.Fatal("gemini-pro should not match any pattern")
	}
	if MatchAny(nil, "anything") {
		t.Fatal("empty pattern list should match nothing")
	}
}
