package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func DefaultStopWords() []string {
	return []string{"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by"}
}

func DefaultTrackingParams() []string {
	return []string{"utm_source", "utm_medium", "utm_campaign", "fbclid", "gclid"}
}

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

// keepASCIIAlnum replaces every rune outside [a-z0-9] and whitespace with a
// space so neighbouring words stay separate.
func keepASCIIAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTitleText lowercases a title, strips punctuation and collapses
// whitespace. It is the first half of signature generation.
func NormalizeTitleText(title string) string {
	p := Pipeline{
		strings.ToLower,
		keepASCIIAlnum,
		collapseSpaces,
	}
	return p.Apply(title)
}

// SanitizeTitle is the display form stored with a cleaned listing.
func SanitizeTitle(title string) string {
	return TrimAndNormalize(title)
}
