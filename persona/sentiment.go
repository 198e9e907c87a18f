package persona

import "strings"

// Lexicon scores sentiment by weighted keyword lookup: the sum of matched
// word weights divided by the word count, clamped to [-1, 1]. Empty input
// scores 0. It implements core.SentimentSource.
type Lexicon struct {
	weights map[string]float64
}

// NewLexicon returns a lexicon with the built-in word weights.
func NewLexicon() *Lexicon {
	return &Lexicon{weights: map[string]float64{
		"love": 1.0, "amazing": 1.0, "wonderful": 0.9, "awesome": 0.9,
		"great": 0.8, "happy": 0.8, "excited": 0.7, "good": 0.6,
		"thanks": 0.5, "nice": 0.5, "fine": 0.3, "okay": 0.2,

		"hate": -1.0, "terrible": -0.9, "awful": -0.9, "horrible": -0.9,
		"angry": -0.8, "sad": -0.7, "worried": -0.6, "bad": -0.6,
		"annoying": -0.6, "tired": -0.4, "stressed": -0.5, "lonely": -0.7,
	}}
}

// Score returns the lexical sentiment of text in [-1, 1].
func (l *Lexicon) Score(text string) float64 {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 0
	}

	var sum float64
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'")
		sum += l.weights[f]
	}

	score := sum / float64(len(fields))
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
