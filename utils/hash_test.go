package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("a", "b"), CacheKey("a", "b"), "same parts must hash identically")
	assert.NotEqual(t, CacheKey("a"), CacheKey("b"))
	assert.Len(t, CacheKey("anything"), 64)
}

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is the budget?", "what is the budget?"},
		{"  What   is\tthe budget? \n", "what is the budget?"},
		{"WHAT IS THE BUDGET?", "what is the budget?"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuestion(tt.in))
	}
}
