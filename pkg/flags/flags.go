package flags

import "regexp"

// flagPattern matches country flags (two regional indicator symbols) and
// subdivision flags (black flag, 2 to 7 tag letters, cancel tag)
var flagPattern = regexp.MustCompile(`[\x{1F1E6}-\x{1F1FF}]{2}|\x{1F3F4}[\x{E0061}-\x{E007A}]{2,7}\x{E007F}`)

// Extract returns every flag emoji in s, left to right. The result is never nil.
func Extract(s string) []string {
	found := flagPattern.FindAllString(s, -1)
	if found == nil {
		return []string{}
	}
	return found
}

// Contains reports whether s holds at least one flag
func Contains(s string) bool {
	return flagPattern.MatchString(s)
}
