package ports

// PatternMatcher finds phrases in content using multi-pattern matching (Aho-Corasick).
// A single pass over the content finds all matching phrases simultaneously,
// regardless of how many phrases are in the set.
//
// The matcher must be rebuilt when the phrase set changes. Rebuild is expected
// to be rare (config reload).
type PatternMatcher interface {
	// Match returns every phrase occurrence in content, in order of appearance.
	// A phrase found twice is returned twice. Returns nil if nothing matches.
	// Content is matched as-is (caller normalizes case).
	Match(content string) []string

	// Rebuild replaces the entire phrase set and reconstructs the automaton.
	// Returns an error if the set contains an empty phrase.
	Rebuild(phrases []string) error
}
