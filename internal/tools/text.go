package tools

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

func stringTools() []Tool {
	return []Tool{
		{"count_vowels", "Count the vowels in text; pass true as a second argument to count y.", countVowels},
		{"count_letters", "Count the alphabetic letters in text.", countLetters},
		{"count_consonants", "Count the consonants in text; pass false as a second argument to exclude y.", countConsonants},
		{"count_words", "Count the whitespace-separated words in text.", countWords},
		{"count_characters", "Count the characters in text; pass false as a second argument to skip spaces.", countCharacters},
		{"analyze_string", "Report letter, vowel, consonant, word, case, digit, space and punctuation counts for text.", analyzeString},
		{"find_longest_word", "Find the longest word in text.", findLongestWord},
		{"count_specific_char", "Count case-insensitive occurrences of a character in text.", countSpecificChar},
		{"is_palindrome", "Check whether text reads the same backwards, ignoring case and punctuation.", isPalindrome},
		{"reverse_string", "Reverse text.", reverseString},
	}
}

func vowelSet(includeY bool) string {
	if includeY {
		return "aeiouAEIOUyY"
	}
	return "aeiouAEIOU"
}

func vowels(s string, includeY bool) int {
	set := vowelSet(includeY)
	n := 0
	for _, r := range s {
		if strings.ContainsRune(set, r) {
			n++
		}
	}
	return n
}

func letters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// consonants counts letters that are not vowels. y counts as a consonant
// unless includeY is false.
func consonants(s string, includeY bool) int {
	set := vowelSet(!includeY)
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) && !strings.ContainsRune(set, r) {
			n++
		}
	}
	return n
}

// textAndFlag reads the common (text[, flag]) signature.
func textAndFlag(tool string, args []any, def bool) (string, bool, error) {
	if err := arity(tool, args, 1, 2); err != nil {
		return "", false, err
	}
	text, err := textArg(tool, args, 0)
	if err != nil {
		return "", false, err
	}
	flag, err := boolArg(tool, args, 1, def)
	return text, flag, err
}

func countVowels(args []any) (any, error) {
	text, includeY, err := textAndFlag("count_vowels", args, false)
	if err != nil {
		return nil, err
	}
	return vowels(text, includeY), nil
}

func countLetters(args []any) (any, error) {
	if err := arity("count_letters", args, 1, 1); err != nil {
		return nil, err
	}
	text, err := textArg("count_letters", args, 0)
	if err != nil {
		return nil, err
	}
	return letters(text), nil
}

func countConsonants(args []any) (any, error) {
	text, includeY, err := textAndFlag("count_consonants", args, true)
	if err != nil {
		return nil, err
	}
	return consonants(text, includeY), nil
}

func countWords(args []any) (any, error) {
	if err := arity("count_words", args, 1, 1); err != nil {
		return nil, err
	}
	text, err := textArg("count_words", args, 0)
	if err != nil {
		return nil, err
	}
	return len(strings.Fields(text)), nil
}

func countCharacters(args []any) (any, error) {
	text, includeSpaces, err := textAndFlag("count_characters", args, true)
	if err != nil {
		return nil, err
	}
	if !includeSpaces {
		text = strings.ReplaceAll(text, " ", "")
	}
	return utf8.RuneCountInString(text), nil
}

// StringStats is the result of analyze_string.
type StringStats struct {
	TotalChars  int
	Letters     int
	Vowels      int
	Consonants  int
	Words       int
	Uppercase   int
	Lowercase   int
	Digits      int
	Spaces      int
	Punctuation int
}

func (s StringStats) String() string {
	return fmt.Sprintf("total_chars=%d, letters=%d, vowels=%d, consonants=%d, words=%d, uppercase=%d, lowercase=%d, digits=%d, spaces=%d, punctuation=%d",
		s.TotalChars, s.Letters, s.Vowels, s.Consonants, s.Words, s.Uppercase, s.Lowercase, s.Digits, s.Spaces, s.Punctuation)
}

// Analyze computes StringStats for text.
func Analyze(text string) StringStats {
	st := StringStats{
		TotalChars: utf8.RuneCountInString(text),
		Letters:    letters(text),
		Vowels:     vowels(text, false),
		Consonants: consonants(text, true),
		Words:      len(strings.Fields(text)),
		Spaces:     strings.Count(text, " "),
	}
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			st.Uppercase++
		case unicode.IsLower(r):
			st.Lowercase++
		}
		if unicode.IsDigit(r) {
			st.Digits++
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			st.Punctuation++
		}
	}
	return st
}

func analyzeString(args []any) (any, error) {
	if err := arity("analyze_string", args, 1, 1); err != nil {
		return nil, err
	}
	text, err := textArg("analyze_string", args, 0)
	if err != nil {
		return nil, err
	}
	return Analyze(text), nil
}

// findLongestWord returns the first of the longest words.
func findLongestWord(args []any) (any, error) {
	if err := arity("find_longest_word", args, 1, 1); err != nil {
		return nil, err
	}
	text, err := textArg("find_longest_word", args, 0)
	if err != nil {
		return nil, err
	}
	longest, best := "", 0
	for _, w := range strings.Fields(text) {
		if n := utf8.RuneCountInString(w); n > best {
			longest, best = w, n
		}
	}
	return longest, nil
}

func countSpecificChar(args []any) (any, error) {
	if err := arity("count_specific_char", args, 2, 2); err != nil {
		return nil, err
	}
	text, err := textArg("count_specific_char", args, 0)
	if err != nil {
		return nil, err
	}
	ch, err := textArg("count_specific_char", args, 1)
	if err != nil {
		return nil, err
	}
	if ch == "" {
		return nil, &ArgError{Tool: "count_specific_char", Msg: "character must not be empty"}
	}
	return strings.Count(strings.ToLower(text), strings.ToLower(ch)), nil
}

func isPalindrome(args []any) (any, error) {
	if err := arity("is_palindrome", args, 1, 1); err != nil {
		return nil, err
	}
	text, err := textArg("is_palindrome", args, 0)
	if err != nil {
		return nil, err
	}
	var cleaned []rune
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cleaned = append(cleaned, r)
		}
	}
	for i, j := 0, len(cleaned)-1; i < j; i, j = i+1, j-1 {
		if cleaned[i] != cleaned[j] {
			return false, nil
		}
	}
	return true, nil
}

func reverseString(args []any) (any, error) {
	if err := arity("reverse_string", args, 1, 1); err != nil {
		return nil, err
	}
	text, err := textArg("reverse_string", args, 0)
	if err != nil {
		return nil, err
	}
	r := []rune(text)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r), nil
}
