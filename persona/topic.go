// Package persona tracks the adaptive personality profile of one
// conversation: five bounded trait scalars, the current topic, and how
// long the conversation has stayed on it.
package persona

import "strings"

// GeneralTopic is the default topic when no keyword set overlaps the
// input.
const GeneralTopic = "general"

// topicTable is the static topic keyword table. Order is the tie-break
// priority: when two topics overlap the input equally, the earlier entry
// wins. Classification is a pure function of this table and the input.
var topicTable = []struct {
	name     string
	keywords []string
}{
	{"work", []string{"work", "job", "boss", "office", "career", "meeting", "project", "deadline", "colleague", "salary"}},
	{"family", []string{"family", "mother", "father", "mom", "dad", "sister", "brother", "parents", "kids", "children", "wife", "husband"}},
	{"health", []string{"health", "doctor", "sick", "pain", "tired", "sleep", "exercise", "diet", "stress", "hospital"}},
	{"technology", []string{"computer", "phone", "software", "internet", "app", "code", "technology", "online", "website", "data"}},
	{"feelings", []string{"feel", "feeling", "happy", "sad", "angry", "lonely", "scared", "anxious", "excited", "love"}},
	{"hobbies", []string{"hobby", "music", "movie", "book", "game", "travel", "cooking", "sport", "art", "garden"}},
}

// ClassifyTopic maps an input to the topic whose keyword set overlaps it
// most. Empty overlap yields GeneralTopic. Deterministic for any input.
func ClassifyTopic(text string) string {
	words := tokenize(text)
	if len(words) == 0 {
		return GeneralTopic
	}

	best := GeneralTopic
	bestCount := 0
	for _, entry := range topicTable {
		count := 0
		for _, kw := range entry.keywords {
			if words[kw] {
				count++
			}
		}
		if count > bestCount {
			best = entry.name
			bestCount = count
		}
	}
	return best
}

func tokenize(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'")
		if f != "" {
			words[f] = true
		}
	}
	return words
}
