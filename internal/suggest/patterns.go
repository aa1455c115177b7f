package suggest

import (
	"strings"
	"unicode/utf8"
)

// MaxItems is the most suggestions ever shown at once.
const MaxItems = 3

// MaxLength bounds generated and remote suggestions, in runes.
const MaxLength = 100

type patternEntry struct {
	key       string
	questions []string
}

// patterns is scanned in order; more specific keys come before the keys
// they contain.
var patterns = []patternEntry{
	{"what", []string{
		"What objects are in this image?",
		"What is the main subject of this image?",
		"What colors dominate this image?",
		"What is happening in this scene?",
		"What text appears in this image?",
		"What time of day does this look like?",
		"What emotions do the people show?",
	}},
	{"describe", []string{
		"Describe this image in detail.",
		"Describe the setting of this image.",
		"Describe the people in this image.",
		"Describe the mood of this image.",
		"Describe the background of this image.",
	}},
	{"how many", []string{
		"How many people are in this image?",
		"How many objects can you count?",
		"How many animals are visible?",
		"How many cars are in this picture?",
	}},
	{"how", []string{
		"How many people are in this image?",
		"How would you describe the lighting?",
		"How old does this photo look?",
		"How is the scene composed?",
	}},
	{"where", []string{
		"Where was this photo taken?",
		"Where is the main subject located in the frame?",
		"Where is the light coming from?",
	}},
	{"who", []string{
		"Who is in this image?",
		"Who appears to be the main subject?",
		"Who might have taken this photo?",
	}},
	{"why", []string{
		"Why is this scene interesting?",
		"Why might this photo have been taken?",
		"Why do the colors look this way?",
	}},
	{"which", []string{
		"Which object stands out the most?",
		"Which colors are used most?",
		"Which direction is the subject facing?",
	}},
	{"is there", []string{
		"Is there any text in this image?",
		"Is there a person in this image?",
		"Is there an animal in this image?",
	}},
	{"are there", []string{
		"Are there any people in this image?",
		"Are there any animals in this image?",
		"Are there any vehicles in this image?",
	}},
	{"can you", []string{
		"Can you identify the objects in this image?",
		"Can you read the text in this image?",
		"Can you describe the scene?",
	}},
	{"identify", []string{
		"Identify the objects in this image.",
		"Can you identify where this was taken?",
		"Identify any brands or logos.",
	}},
	{"count", []string{
		"Count the people in this image.",
		"Count the objects on the table.",
		"Count the animals in this scene.",
	}},
	{"explain", []string{
		"Explain what is happening in this image.",
		"Explain the context of this scene.",
		"Explain any symbols in this image.",
	}},
	{"tell", []string{
		"Tell me what you see in this image.",
		"Tell me about the people in this image.",
		"Tell me about the setting.",
	}},
}

// synthSuffixes are appended to unmatched input.
var synthSuffixes = []string{
	" in this image?",
	" in the foreground?",
	" in the background?",
}

// Patterns returns up to MaxItems rule-based suggestions for partial
// without any network activity. Text matching no table entry, or whose
// entry has no fitting question, gets synthesized completions instead.
func Patterns(partial string) []string {
	// Matching sees the input as typed; only synthesized completions trim.
	lower := strings.ToLower(partial)

	for _, e := range patterns {
		if !strings.Contains(lower, e.key) {
			continue
		}
		if out := filterQuestions(e.questions, lower); len(out) > 0 {
			return out
		}
		break
	}
	return synthesize(partial)
}

// filterQuestions keeps questions that start with q, then those that merely
// contain it, preserving table order within each group.
func filterQuestions(questions []string, q string) []string {
	var prefix, contains []string
	for _, s := range questions {
		ls := strings.ToLower(s)
		switch {
		case strings.HasPrefix(ls, q):
			prefix = append(prefix, s)
		case strings.Contains(ls, q):
			contains = append(contains, s)
		}
	}
	return Normalize(append(prefix, contains...))
}

func synthesize(partial string) []string {
	base := strings.TrimSpace(partial)
	if base == "" {
		return nil
	}
	out := make([]string, 0, len(synthSuffixes))
	for _, suf := range synthSuffixes {
		s := base + suf
		if utf8.RuneCountInString(s) <= MaxLength {
			out = append(out, s)
		}
	}
	return out
}

// Normalize drops empty and exact-duplicate entries and caps the result at
// MaxItems.
func Normalize(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, MaxItems)
	for _, s := range items {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == MaxItems {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
