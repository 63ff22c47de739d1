package model

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestSigmoid(t *testing.T) {
	tests := []struct {
		input    float32
		expected float32
	}{
		{input: 0, expected: 0.5},
		{input: 100, expected: 1},
		{input: -100, expected: 0},
	}

	for _, tt := range tests {
		if got := Sigmoid(tt.input); math.Abs(float64(got-tt.expected)) > 1e-6 {
			t.Errorf("Sigmoid(%v) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewPrediction(t *testing.T) {
	classes := []string{"a", "b", "c", "d"}
	logits := []float32{2, -3, 0, 0.1}

	p, err := NewPrediction(logits, classes, 0.5)
	if err != nil {
		t.Fatalf("NewPrediction() error = %v", err)
	}

	// 0 maps to exactly 0.5, which does not exceed the threshold.
	if !reflect.DeepEqual(p.Labels, []string{"a", "d"}) {
		t.Errorf("Expected labels [a d], got %v", p.Labels)
	}
	for _, s := range p.Scores {
		if c := s.Confidence(); c < 0 || c > 100 {
			t.Errorf("%s confidence %v outside [0, 100]", s.Class, c)
		}
	}
}

func TestNewPredictionMismatch(t *testing.T) {
	_, err := NewPrediction([]float32{1, 2}, []string{"a", "b", "c"}, 0.5)
	if !errors.Is(err, ErrClassMismatch) {
		t.Errorf("Expected ErrClassMismatch, got %v", err)
	}
}

func TestTopIsStable(t *testing.T) {
	p := &Prediction{Scores: []Score{
		{Class: "a", Index: 0, Probability: 0.2},
		{Class: "b", Index: 1, Probability: 0.9},
		{Class: "c", Index: 2, Probability: 0.9},
		{Class: "d", Index: 3, Probability: 0.9},
	}}

	top := p.Top(2)

	if len(top) != 2 || top[0].Class != "b" || top[1].Class != "c" {
		t.Errorf("Expected [b c], got %v", top)
	}
	if p.Scores[0].Class != "a" {
		t.Error("Top must not reorder the prediction")
	}
	if got := p.Top(10); len(got) != 4 {
		t.Errorf("Expected all 4 scores, got %d", len(got))
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		prob     float32
		expected float64
	}{
		{prob: 0.987654, expected: 98.77},
		{prob: 0.5, expected: 50},
		{prob: 0, expected: 0},
		{prob: 1, expected: 100},
		{prob: 0.00001, expected: 0},
	}

	for _, tt := range tests {
		if got := (Score{Probability: tt.prob}).Confidence(); got != tt.expected {
			t.Errorf("Confidence(%v) = %v, want %v", tt.prob, got, tt.expected)
		}
	}
}

func TestPercentages(t *testing.T) {
	p := &Prediction{Scores: []Score{
		{Class: "a", Probability: 0.25},
		{Class: "b", Probability: 0.75},
	}}

	expected := map[string]float64{"a": 25, "b": 75}
	if got := p.Percentages(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}
