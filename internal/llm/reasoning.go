package llm

import (
	"regexp"
	"strings"
)

var (
	thinkBlock  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	thinkMarker = regexp.MustCompile(`</?think>`)
)

// StripReasoning removes every <think>...</think> block some reasoning
// models prepend to their answer, then trims surrounding whitespace.
// Removal repeats until no block is left, since dropping one block can join
// fragments into a new one. Once a block has been removed, stray markers are
// dropped as well. Replies with no complete block keep their text.
func StripReasoning(s string) string {
	if !thinkBlock.MatchString(s) {
		return strings.TrimSpace(s)
	}
	s = untilStable(s, thinkBlock)
	s = untilStable(s, thinkMarker)
	return strings.TrimSpace(s)
}

func untilStable(s string, re *regexp.Regexp) string {
	for {
		next := re.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}
