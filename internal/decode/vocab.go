package decode

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// DefaultBoundaryMarker is the sub-word boundary token rendered as a space.
const DefaultBoundaryMarker = "|"

// ErrVocabularyUnavailable indicates an empty or unloaded vocabulary.
var ErrVocabularyUnavailable = errors.New("vocabulary is empty or not loaded")

// Vocabulary is an ordered, index-addressed list of token strings. One token
// is the designated sub-word boundary marker, rendered as a space in output.
type Vocabulary struct {
	tokens   []string
	boundary string
}

// NewVocabulary creates a vocabulary from an ordered token list.
func NewVocabulary(tokens []string, boundaryMarker string) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrVocabularyUnavailable
	}

	if boundaryMarker == "" {
		boundaryMarker = DefaultBoundaryMarker
	}

	return &Vocabulary{
		tokens:   append([]string(nil), tokens...),
		boundary: boundaryMarker,
	}, nil
}

// LoadVocabulary reads a token-per-line vocabulary file. Line order defines
// token indices. Blank lines are kept as empty tokens so indices stay aligned
// with the model's output dimension.
func LoadVocabulary(path, boundaryMarker string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file %s: %w", path, err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file %s: %w", path, err)
	}

	return NewVocabulary(tokens, boundaryMarker)
}

// Size returns the number of tokens.
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// Token returns the token string at index i.
func (v *Vocabulary) Token(i int) string {
	return v.tokens[i]
}

// Render maps a token index to its output text, replacing the boundary
// marker with a literal space.
func (v *Vocabulary) Render(i int) string {
	if v.tokens[i] == v.boundary {
		return " "
	}
	return v.tokens[i]
}
