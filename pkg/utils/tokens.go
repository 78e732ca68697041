// Package utils provides small shared helpers.
package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with a tiktoken encoding, falling back to a
// rough character estimate when the encoding cannot be initialized
// (tiktoken fetches BPE data over the network on first use).
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a token counter. Encoding initialization is lazy
// so construction never touches the network.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the token count for text.
func (tc *TokenCounter) Count(text string) int {
	tc.once.Do(func() {
		encoding, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tc.encoding = encoding
		}
	})

	if tc.encoding == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// EstimateTokens provides a rough token estimation of 4 characters per token.
func EstimateTokens(text string) int {
	return len(text) / 4
}
