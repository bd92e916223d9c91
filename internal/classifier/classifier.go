// Package classifier maps free-text transaction descriptions to spending
// categories using a multinomial naive Bayes model over normalized tokens.
// Training is deterministic: identical input produces an identical artifact
// payload, and tie scores break by training example count, then label.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

const (
	// MinSamples is the smallest training set that can be learned from.
	MinSamples = 2
	// MaxAlternatives caps the ranked non-top categories returned per prediction.
	MaxAlternatives = 5
	// holdoutMinSamples is the smallest training set that affords a held-out
	// accuracy estimate; below it accuracy is reported as unavailable.
	holdoutMinSamples = 10
	// laplaceAlpha is the additive smoothing constant.
	laplaceAlpha = 1.0
)

// ClassParams holds the fitted token statistics for one category.
type ClassParams struct {
	TokenCounts map[string]int `json:"token_counts"`
	Label       string         `json:"label"`
	DocCount    int            `json:"doc_count"`
	TokenTotal  int            `json:"token_total"`
}

// Params is the serializable state of a trained classifier. The training
// corpus is retained so the feedback loop can merge corrections into it.
type Params struct {
	Classes  []ClassParams         `json:"classes"`
	Corpus   []model.LabeledSample `json:"corpus"`
	Features FeatureStrategy       `json:"features"`
	Vocab    int                   `json:"vocab_size"`
}

// Strategy returns the feature strategy the params were fitted with.
// Payloads predating the field default to bag-of-words.
func (p *Params) Strategy() FeatureStrategy {
	if p.Features == "" {
		return FeaturesBagOfWords
	}
	return p.Features
}

// Payload serializes the params for artifact storage.
func (p *Params) Payload() ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize classifier params: %w", err)
	}
	return payload, nil
}

// Train fits a classifier on labeled samples with bag-of-words features.
func Train(samples []model.LabeledSample) (*Params, *model.TrainingReport, error) {
	return TrainWithFeatures(samples, FeaturesBagOfWords)
}

// TrainWithFeatures fits a classifier on labeled samples using the given
// feature strategy. It requires at least MinSamples samples; accuracy is
// estimated on a deterministic 1-in-5 held-out split when the sample count
// permits, otherwise reported as unavailable.
func TrainWithFeatures(samples []model.LabeledSample, strategy FeatureStrategy) (*Params, *model.TrainingReport, error) {
	if !strategy.Valid() {
		return nil, nil, common.NewValidationError("features",
			fmt.Sprintf("unknown feature strategy %q", strategy))
	}
	if len(samples) < MinSamples {
		return nil, nil, &common.InsufficientDataError{
			Got: len(samples), Minimum: MinSamples, Unit: "labeled samples",
		}
	}
	for i, sample := range samples {
		if Normalize(sample.Text) == "" {
			return nil, nil, common.NewValidationError(
				fmt.Sprintf("samples[%d].text", i), "empty after normalization")
		}
		if sample.Label == "" {
			return nil, nil, common.NewValidationError(
				fmt.Sprintf("samples[%d].label", i), "label is required")
		}
	}

	accuracy := holdoutAccuracy(samples, strategy)

	params := fit(samples, strategy)
	report := &model.TrainingReport{
		ModelType:  model.TypeClassifier,
		TrainedAt:  time.Now().UTC(),
		Samples:    len(samples),
		Categories: len(params.Classes),
		Accuracy:   accuracy,
	}

	return params, report, nil
}

// fit builds class feature statistics over the full sample set.
func fit(samples []model.LabeledSample, strategy FeatureStrategy) *Params {
	byLabel := make(map[string]*ClassParams)
	vocab := make(map[string]struct{})

	for _, sample := range samples {
		class, ok := byLabel[sample.Label]
		if !ok {
			class = &ClassParams{Label: sample.Label, TokenCounts: make(map[string]int)}
			byLabel[sample.Label] = class
		}
		class.DocCount++
		for _, token := range Features(sample.Text, strategy) {
			class.TokenCounts[token]++
			class.TokenTotal++
			vocab[token] = struct{}{}
		}
	}

	classes := make([]ClassParams, 0, len(byLabel))
	for _, class := range byLabel {
		classes = append(classes, *class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Label < classes[j].Label })

	corpus := make([]model.LabeledSample, len(samples))
	copy(corpus, samples)

	return &Params{Classes: classes, Corpus: corpus, Features: strategy, Vocab: len(vocab)}
}

// holdoutAccuracy evaluates a 1-in-5 split, keeping at least one training
// example per label. Returns nil when the sample count does not permit it.
func holdoutAccuracy(samples []model.LabeledSample, strategy FeatureStrategy) *float64 {
	if len(samples) < holdoutMinSamples {
		return nil
	}
	labelCounts := make(map[string]int)
	for _, sample := range samples {
		labelCounts[sample.Label]++
	}
	for _, count := range labelCounts {
		if count < 2 {
			return nil
		}
	}

	remaining := make(map[string]int, len(labelCounts))
	for label, count := range labelCounts {
		remaining[label] = count
	}

	var train, holdout []model.LabeledSample
	for i, sample := range samples {
		if i%5 == 4 && remaining[sample.Label] > 1 {
			holdout = append(holdout, sample)
			remaining[sample.Label]--
			continue
		}
		train = append(train, sample)
	}
	if len(holdout) == 0 {
		return nil
	}

	clf := New(fit(train, strategy))
	correct := 0
	for _, sample := range holdout {
		top, _, err := clf.Predict(sample.Text)
		if err == nil && top.Category == sample.Label {
			correct++
		}
	}

	accuracy := float64(correct) / float64(len(holdout))
	return &accuracy
}

// Classifier serves predictions from fitted params.
type Classifier struct {
	params *Params
}

// New creates a classifier over fitted params.
func New(params *Params) *Classifier {
	return &Classifier{params: params}
}

// FromPayload deserializes an artifact payload into a servable classifier.
func FromPayload(payload []byte) (*Classifier, error) {
	var params Params
	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("failed to decode classifier params: %w", err)
	}
	if len(params.Classes) == 0 {
		return nil, fmt.Errorf("classifier params contain no classes")
	}
	return New(&params), nil
}

// Params returns the fitted params backing this classifier.
func (c *Classifier) Params() *Params {
	return c.params
}

// Predict scores a transaction description against every known category and
// returns the top pick plus ranked alternatives (capped, descending, and
// excluding the top pick). Confidences are normalized posteriors in [0, 1].
func (c *Classifier) Predict(text string) (model.CategoryScore, model.CategoryScores, error) {
	tokens := Features(text, c.params.Strategy())
	if len(tokens) == 0 {
		return model.CategoryScore{}, nil,
			common.NewValidationError("text", "empty after normalization")
	}

	totalDocs := 0
	for _, class := range c.params.Classes {
		totalDocs += class.DocCount
	}

	// Log-space scores to avoid underflow on long descriptions.
	logScores := make([]float64, len(c.params.Classes))
	for i, class := range c.params.Classes {
		score := math.Log(float64(class.DocCount) / float64(totalDocs))
		denominator := float64(class.TokenTotal) + laplaceAlpha*float64(c.params.Vocab)
		for _, token := range tokens {
			count := float64(class.TokenCounts[token])
			score += math.Log((count + laplaceAlpha) / denominator)
		}
		logScores[i] = score
	}

	// Normalize with log-sum-exp.
	maxScore := logScores[0]
	for _, score := range logScores[1:] {
		if score > maxScore {
			maxScore = score
		}
	}
	sum := 0.0
	posteriors := make([]float64, len(logScores))
	for i, score := range logScores {
		posteriors[i] = math.Exp(score - maxScore)
		sum += posteriors[i]
	}

	ranked := make(model.CategoryScores, len(c.params.Classes))
	order := make([]int, len(c.params.Classes))
	for i := range order {
		order[i] = i
		ranked[i] = model.CategoryScore{
			Category: c.params.Classes[i].Label,
			Score:    posteriors[i] / sum,
		}
	}

	// Ties break by training example count, then label, for determinism.
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if c.params.Classes[i].DocCount != c.params.Classes[j].DocCount {
			return c.params.Classes[i].DocCount > c.params.Classes[j].DocCount
		}
		return ranked[i].Category < ranked[j].Category
	})

	sorted := make(model.CategoryScores, len(order))
	for pos, i := range order {
		sorted[pos] = ranked[i]
	}

	top := sorted[0]
	alternatives := sorted[1:]
	if len(alternatives) > MaxAlternatives {
		alternatives = alternatives[:MaxAlternatives]
	}
	result := make(model.CategoryScores, len(alternatives))
	copy(result, alternatives)

	return top, result, nil
}
