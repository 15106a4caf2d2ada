// Package moderation filters the free text attached to invitations before it
// reaches the user.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator censors a fixed dictionary of words. Matching ignores case,
// punctuation, spacing and common leet substitutions, so "B.4.d" matches "bad".
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// mapping keeps, for every searchable rune, its index in the original text.
type mapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the automaton. An empty dictionary yields a moderator
// returning every text unchanged.
func NewModerator(censoredWords []string, censoredChar rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		if p := normalizeRunes([]rune(word)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return &Moderator{censoredChar: censoredChar}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, censoredChar: censoredChar}, nil
}

// Censor replaces every matched span of the original text, noise included,
// with the censored character, and returns the dictionary words found.
// Runes outside the matches are kept as is.
func (m *Moderator) Censor(original string) (string, []string) {
	if m == nil || m.matcher == nil {
		return original, nil
	}
	mp := normalize(original)
	if len(mp.normalized) == 0 {
		return original, nil
	}
	terms := m.matcher.MultiPatternSearch(mp.normalized, false)
	if len(terms) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	words := make([]string, 0, len(terms))
	for _, term := range terms {
		start, end := term.Pos, term.Pos+len(term.Word)
		if start < 0 || end > len(mp.origIdx) {
			continue
		}
		for i := mp.origIdx[start]; i <= mp.origIdx[end-1]; i++ {
			origRunes[i] = m.censoredChar
		}
		words = append(words, string(term.Word))
	}
	return string(origRunes), words
}

func normalize(input string) mapping {
	origRunes := []rune(input)
	mp := mapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		mp.normalized = append(mp.normalized, unicode.ToLower(clean))
		mp.origIdx = append(mp.origIdx, i)
	}
	return mp
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps leet characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
