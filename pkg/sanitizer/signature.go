package sanitizer

import (
	"strings"

	"sweeps/pkg/model"
)

const (
	DefaultSignatureTokens = 5
	minTokenLength         = 3
)

// SignatureGenerator reduces a title to its first few significant words.
// Titles sharing a signature are treated as near duplicates; truncation and
// stop-word removal bias the match towards missing a duplicate rather than
// merging two distinct listings.
type SignatureGenerator struct {
	stopWords map[string]struct{}
	maxTokens int
}

func NewSignatureGenerator(stopWords []string) *SignatureGenerator {
	return &SignatureGenerator{
		stopWords: toSet(NormalizeWordList(stopWords)),
		maxTokens: DefaultSignatureTokens,
	}
}

func (g *SignatureGenerator) Signature(title model.RawValue) string {
	s, ok := title.AsText()
	if !ok || s == "" {
		return ""
	}

	tokens := strings.Fields(NormalizeTitleText(s))
	kept := make([]string, 0, g.maxTokens)
	for _, tok := range tokens {
		if len(tok) < minTokenLength {
			continue
		}
		if _, stop := g.stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == g.maxTokens {
			break
		}
	}
	return strings.Join(kept, " ")
}
