package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "only separators", input: " , ,", expected: nil},
		{name: "single broker", input: "kafka-1:9092", expected: []string{"kafka-1:9092"}},
		{
			name:     "trims and drops empties",
			input:    " https://a.example ,, https://b.example,",
			expected: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "duplicates keep first position",
			input:    "k2:9092,k1:9092,k2:9092",
			expected: []string{"k2:9092", "k1:9092"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestDedupeAndTrim_NilForNoEntries(t *testing.T) {
	assert.Nil(t, DedupeAndTrim(nil))
	assert.Nil(t, DedupeAndTrim([]string{"", "  "}))
}
