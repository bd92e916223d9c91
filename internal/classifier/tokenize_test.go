package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "merchant with numbers and symbols",
			text: "UBER *TRIP 4421",
			want: []string{"uber", "trip"},
		},
		{
			name: "stop words dropped",
			text: "Payment to the Electric Company for services",
			want: []string{"payment", "electric", "company", "services"},
		},
		{
			name: "apostrophes stripped",
			text: "TRADER JOE'S #512",
			want: []string{"trader", "joe", "s"},
		},
		{
			name: "only noise",
			text: "12345 *** 99",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "uber trip", Normalize("UBER *TRIP 4421"))
	assert.Equal(t, "", Normalize("12345 !!"))
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		strategy FeatureStrategy
		want     []string
	}{
		{
			name:     "bag of words",
			text:     "WHOLE FOODS MARKET",
			strategy: FeaturesBagOfWords,
			want:     []string{"whole", "foods", "market"},
		},
		{
			name:     "bigram adds adjacent pairs",
			text:     "WHOLE FOODS MARKET",
			strategy: FeaturesBigram,
			want:     []string{"whole", "foods", "market", "whole_foods", "foods_market"},
		},
		{
			name:     "bigram on single token",
			text:     "NETFLIX",
			strategy: FeaturesBigram,
			want:     []string{"netflix"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Features(tt.text, tt.strategy))
		})
	}
}

func TestFeatureStrategyValid(t *testing.T) {
	assert.True(t, FeaturesBagOfWords.Valid())
	assert.True(t, FeaturesBigram.Valid())
	assert.False(t, FeatureStrategy("tfidf").Valid())
	assert.False(t, FeatureStrategy("").Valid())
}
