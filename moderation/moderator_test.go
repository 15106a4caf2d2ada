package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary avoids short words so that no match lands inside another word
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"scam", "phishing", "casino"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "Join my casino group",
			expected: "Join my ****** group",
			words:    []string{"casino"},
		},
		{
			name:     "Multiple occurrences",
			input:    "scam scam",
			expected: "**** ****",
			words:    []string{"scam", "scam"},
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "Try C.4.$.1.n.0 now",
			expected: "Try *********** now",
			words:    []string{"casino"},
		},
		{
			name:     "Uppercase and noise",
			input:    "S-C-A-M in a P.H.I.S.H.I.N.G group",
			expected: "******* in a *************** group",
			words:    []string{"scam", "phishing"},
		},
		{
			name:     "Accents are preserved",
			input:    "Soirée casino",
			expected: "Soirée ******",
			words:    []string{"casino"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "No scam!",
			expected: "No ****!",
			words:    []string{"scam"},
		},
		{
			name:     "Nothing to censor",
			input:    "Weekend hikers, come along",
			expected: "Weekend hikers, come along",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)

	// Given a dictionary holding only noise next to a real word
	mod, err := NewModerator([]string{"...", ",,,", "", "scam"}, replacementChar)
	req.NoError(err)

	// Then the real word is censored
	content, words := mod.Censor("Not a scam at all")
	req.Equal("Not a **** at all", content)
	req.Equal([]string{"scam"}, words)

	// Then noise alone is left untouched
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar)
	req.NoError(err)

	content, words := mod.Censor("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)

	var none *Moderator
	content, _ = none.Censor("nil moderator")
	req.Equal("nil moderator", content)
}
