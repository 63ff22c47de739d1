package model

import (
	"fmt"
	"math"
	"sort"
)

func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// NewPrediction applies a sigmoid to each logit. Every class is scored
// independently, so probabilities do not sum to one.
func NewPrediction(logits []float32, classes []string, threshold float32) (*Prediction, error) {
	if len(logits) != len(classes) {
		return nil, fmt.Errorf("%w: model returned %d scores for %d classes", ErrClassMismatch, len(logits), len(classes))
	}

	p := &Prediction{
		Scores: make([]Score, len(logits)),
		Labels: []string{},
	}
	for i, logit := range logits {
		prob := Sigmoid(logit)
		p.Scores[i] = Score{Class: classes[i], Index: i, Probability: prob}
		if prob > threshold {
			p.Labels = append(p.Labels, classes[i])
		}
	}
	return p, nil
}

// Top returns the k highest scores. Ties keep class index order.
func (p *Prediction) Top(k int) []Score {
	sorted := make([]Score, len(p.Scores))
	copy(sorted, p.Scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Probability > sorted[j].Probability
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

func (p *Prediction) Percentages() map[string]float64 {
	out := make(map[string]float64, len(p.Scores))
	for _, s := range p.Scores {
		out[s.Class] = s.Confidence()
	}
	return out
}

// Confidence is the probability as a percentage rounded to 2 decimals.
func (s Score) Confidence() float64 {
	pct := math.Round(float64(s.Probability)*100*100) / 100
	return math.Min(math.Max(pct, 0), 100)
}
