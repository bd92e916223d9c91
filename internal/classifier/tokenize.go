package classifier

import (
	"regexp"
	"strings"
)

// nonLetterRegex strips digits, punctuation and other symbols so merchant
// strings like "UBER *TRIP 4421" reduce to their words.
var nonLetterRegex = regexp.MustCompile(`[^a-z\s]+`)

// stopWords are high-frequency English words that carry no category signal.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

// FeatureStrategy selects how normalized tokens become model features.
// The set is closed; strategies are chosen by configuration, never inferred
// from the input.
type FeatureStrategy string

// Feature strategy constants.
const (
	// FeaturesBagOfWords uses each normalized token as one feature.
	FeaturesBagOfWords FeatureStrategy = "bag_of_words"
	// FeaturesBigram augments the tokens with adjacent token pairs, which
	// keeps multi-word merchant names ("whole foods") distinctive.
	FeaturesBigram FeatureStrategy = "bigram"
)

// Valid reports whether the strategy is one of the known strategies.
func (s FeatureStrategy) Valid() bool {
	switch s {
	case FeaturesBagOfWords, FeaturesBigram:
		return true
	}
	return false
}

// Features extracts model features from a transaction description using the
// given strategy.
func Features(text string, strategy FeatureStrategy) []string {
	tokens := Tokenize(text)
	if strategy != FeaturesBigram {
		return tokens
	}
	features := make([]string, len(tokens), 2*len(tokens))
	copy(features, tokens)
	for i := 0; i+1 < len(tokens); i++ {
		features = append(features, tokens[i]+"_"+tokens[i+1])
	}
	return features
}

// Normalize lowercases a transaction description, removes non-letter
// characters, collapses whitespace and drops stop words.
func Normalize(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// Tokenize returns the normalized tokens of a transaction description.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonLetterRegex.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := stopWords[field]; ok {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
