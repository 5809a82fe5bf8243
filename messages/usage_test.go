package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsage_Add(t *testing.T) {
	tests := []struct {
		name     string
		initial  Usage
		add      *Usage
		expected Usage
	}{
		{
			name:     "accumulates counts",
			initial:  Usage{InputTokens: 10, OutputTokens: 2},
			add:      &Usage{OutputTokens: 7, TotalTokens: 19},
			expected: Usage{InputTokens: 10, OutputTokens: 9, TotalTokens: 19},
		},
		{
			name:     "nil is a no-op",
			initial:  Usage{InputTokens: 3},
			add:      nil,
			expected: Usage{InputTokens: 3},
		},
		{
			name:     "zero add",
			initial:  Usage{InputTokens: 1, OutputTokens: 1},
			add:      &Usage{},
			expected: Usage{InputTokens: 1, OutputTokens: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.initial
			u.Add(tt.add)
			assert.Equal(t, tt.expected, u)
		})
	}
}

func TestUsage_Total(t *testing.T) {
	assert.Equal(t, int64(42), Usage{TotalTokens: 42}.Total())
	assert.Equal(t, int64(15), Usage{InputTokens: 10, OutputTokens: 5}.Total())
}
