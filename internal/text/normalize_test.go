package text_test

import (
	"testing"

	"github.com/book-expert/tts-cli/internal/text"
	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"adds sentence ending", "Hello world", "Hello world."},
		{"keeps question mark", "Are you there?", "Are you there?"},
		{"collapses whitespace", "Hello\n\n  world\tagain.", "Hello world again."},
		{"abbreviations", "Mrs. Smith met Dr. Jones", "Misses Smith met Doctor Jones."},
		{"numbers", "I have 3 cats and 1250 fish", "I have three cats and one thousand two hundred fifty fish."},
		{"smart punctuation", "“Wait”—she said…", `"Wait"-she said...`},
		{"repeated marks", "Stop!!! Now???", "Stop! Now?"},
		{"long ellipsis", "Well.....", "Well..."},
		{"abbreviation inside a word", "Visit BestCo. Then St. Ives", "Visit BestCo. Then Saint Ives."},
		{"decimal", "It costs 3.5 dollars", "It costs three point five dollars."},
		{"thousands separator", "About 1,000 people", "About one thousand people."},
		{"grouped decimal", "Pay 2,500.75 now", "Pay two thousand five hundred point seven five now."},
		{"dotted version", "Version 1.2.3", "Version one.two.three."},
		{"footnote markers", "Light bends [3] near mass [4, 5].", "Light bends near mass."},
		{"ranges removed, letters kept", "See [5-7] and [a]", "See and [a]."},
	}

	normalizer := text.NewNormalizer()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, normalizer.Normalize(testCase.input))
		})
	}
}

func TestIntegerToWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    int
		expected string
	}{
		{0, "zero"},
		{7, "seven"},
		{13, "thirteen"},
		{40, "forty"},
		{99, "ninety nine"},
		{100, "one hundred"},
		{101, "one hundred one"},
		{1000, "one thousand"},
		{21005, "twenty one thousand five"},
		{999999, "nine hundred ninety nine thousand nine hundred ninety nine"},
		{1000000, "1000000"},
		{-5, "-5"},
	}

	for _, testCase := range tests {
		assert.Equal(t, testCase.expected, text.IntegerToWords(testCase.input))
	}
}
