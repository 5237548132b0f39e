package ports

// Tokenizer splits input text into an ordered, finite list of tokens.
// It is called once per Train/Guess. Implementations must be safe for
// concurrent use; the classifier never mutates the returned slice.
type Tokenizer interface {
	Tokenize(text string) []string
}
