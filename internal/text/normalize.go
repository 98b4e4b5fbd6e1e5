// Package text normalizes input text before it is handed to a speech backend.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	numberBaseTen      = 10
	numberBaseTwenty   = 20
	numberBaseHundred  = 100
	numberBaseThousand = 1000
	// MaxNumberForWords is the largest integer spelled out; larger ones are kept as digits.
	MaxNumberForWords = 999999
)

var (
	// Integers, decimals and comma-grouped thousands: 42, 3.5, 1,250,000.
	numberPattern       = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	groupedPattern      = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	plainNumberPattern  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	digitRunPattern     = regexp.MustCompile(`\d+`)
	abbreviationPattern = regexp.MustCompile(`\b(Mrs|Mr|Ms|Dr|St|Co|Ltd|Corp|Inc)\.`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
	// Footnote markers such as [12], [3, 4] or [5-7].
	referencePattern    = regexp.MustCompile(`\s*\[\d+(?:\s*[,-]\s*\d+)*\]`)
)

// Normalizer rewrites text into a form speech models pronounce reliably.
type Normalizer struct {
	abbreviations map[string]string
	punctuation   *strings.Replacer
}

// NewNormalizer creates a Normalizer with the default abbreviation table.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		abbreviations: map[string]string{
			"Mrs.":  "Misses",
			"Mr.":   "Mister",
			"Ms.":   "Miss",
			"Dr.":   "Doctor",
			"St.":   "Saint",
			"Co.":   "Company",
			"Ltd.":  "Limited",
			"Corp.": "Corporation",
			"Inc.":  "Incorporated",
		},
		punctuation: strings.NewReplacer(
			"—", "-",
			"–", "-",
			"‒", "-",
			"…", "...",
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// Normalize drops footnote markers, expands abbreviations, spells out
// integers, folds typographic punctuation and collapses whitespace. The
// result always ends a sentence.
// Empty or whitespace-only input yields "".
func (n *Normalizer) Normalize(input string) string {
	out := referencePattern.ReplaceAllString(input, "")
	out = abbreviationPattern.ReplaceAllStringFunc(out, func(abbr string) string {
		return n.abbreviations[abbr]
	})
	out = numberPattern.ReplaceAllStringFunc(out, spellNumber)
	out = n.punctuation.Replace(out)
	out = strings.TrimSpace(whitespacePattern.ReplaceAllString(out, " "))
	out = collapseRepeatedPunctuation(out)

	return ensureSentenceEnding(out)
}

// spellNumber spells a matched number. Comma-grouped thousands and a single
// decimal point are read as one number; any other separator sequence (a
// version string, a list) has each digit run spelled on its own.
func spellNumber(number string) string {
	switch {
	case groupedPattern.MatchString(number):
		return spellDecimal(strings.ReplaceAll(number, ",", ""))
	case plainNumberPattern.MatchString(number):
		return spellDecimal(number)
	default:
		return digitRunPattern.ReplaceAllStringFunc(number, spellInteger)
	}
}

func spellDecimal(number string) string {
	whole, fraction, ok := strings.Cut(number, ".")
	out := spellInteger(whole)

	if !ok {
		return out
	}

	digits := make([]string, 0, len(fraction))
	for _, d := range fraction {
		digits = append(digits, IntegerToWords(int(d-'0')))
	}

	return out + " point " + strings.Join(digits, " ")
}

func spellInteger(digits string) string {
	num, err := strconv.Atoi(digits)
	if err != nil {
		return digits
	}

	return IntegerToWords(num)
}

// collapseRepeatedPunctuation shortens runs of the same punctuation mark to a
// single mark. Dots are kept up to an ellipsis.
func collapseRepeatedPunctuation(s string) string {
	var (
		b    strings.Builder
		prev rune
		run  int
	)

	for _, r := range s {
		if r == prev && unicode.IsPunct(r) {
			run++
			if r != '.' || run >= 3 {
				continue
			}
		} else {
			run = 0
		}

		b.WriteRune(r)
		prev = r
	}

	return b.String()
}

func ensureSentenceEnding(s string) string {
	if s == "" {
		return ""
	}

	last, _ := utf8.DecodeLastRuneInString(s)
	switch last {
	case '.', '!', '?':
		return s
	default:
		return s + "."
	}
}

var (
	ones = []string{
		"", "one", "two", "three", "four", "five",
		"six", "seven", "eight", "nine",
	}
	teens = []string{
		"ten", "eleven", "twelve", "thirteen", "fourteen",
		"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	}
	tens = []string{
		"", "", "twenty", "thirty", "forty", "fifty",
		"sixty", "seventy", "eighty", "ninety",
	}
)

// IntegerToWords converts 0..MaxNumberForWords into English words. Other
// values are returned as digits.
func IntegerToWords(number int) string {
	if number < 0 || number > MaxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "zero"
	}

	var parts []string

	if thousands := number / numberBaseThousand; thousands > 0 {
		parts = append(parts, underThousand(thousands)+" thousand")
	}

	if rest := number % numberBaseThousand; rest > 0 {
		parts = append(parts, underThousand(rest))
	}

	return strings.Join(parts, " ")
}

func underThousand(num int) string {
	hundreds := num / numberBaseHundred
	rest := num % numberBaseHundred

	switch {
	case hundreds == 0:
		return underHundred(rest)
	case rest == 0:
		return ones[hundreds] + " hundred"
	default:
		return ones[hundreds] + " hundred " + underHundred(rest)
	}
}

func underHundred(num int) string {
	switch {
	case num < numberBaseTen:
		return ones[num]
	case num < numberBaseTwenty:
		return teens[num-numberBaseTen]
	case num%numberBaseTen == 0:
		return tens[num/numberBaseTen]
	default:
		return tens[num/numberBaseTen] + " " + ones[num%numberBaseTen]
	}
}
