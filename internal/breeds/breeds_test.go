package breeds

import "testing"

func TestLabels(t *testing.T) {
	labels := Labels()
	if len(labels) != 30 {
		t.Fatalf("Expected 30 labels, got %d", len(labels))
	}
	if labels[0] != "Beagle" || labels[29] != "Yorkshire Terrier" {
		t.Errorf("Unexpected label order: first=%s last=%s", labels[0], labels[29])
	}

	seen := make(map[string]bool)
	for _, l := range labels {
		if seen[l] {
			t.Errorf("Duplicate label %q", l)
		}
		seen[l] = true
	}

	labels[0] = "changed"
	if Labels()[0] != "Beagle" {
		t.Error("Labels must return a copy")
	}
}

func TestKoreanName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "known breed", input: "Jindo Dog", expected: "진돗개"},
		{name: "unknown breed falls back", input: "Mutt", expected: "Mutt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KoreanName(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{name: "english case insensitive", query: "poodle", expected: 2},
		{name: "korean", query: "푸들", expected: 2},
		{name: "no match", query: "dragon", expected: 0},
		{name: "empty query matches everything", query: "", expected: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Search(tt.query); len(got) != tt.expected {
				t.Errorf("Expected %d results, got %d", tt.expected, len(got))
			}
		})
	}
}
