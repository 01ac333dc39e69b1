package completion

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the number of tokens in generated text.
type TokenCounter interface {
	Count(text string) int
}

// DefaultEncoding is the tiktoken encoding used for estimates.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a tiktoken encoding. It loads the
// encoding on first use and falls back to whitespace splitting when the
// encoding cannot be loaded.
type TiktokenCounter struct {
	Encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}

	c.once.Do(func() {
		name := c.Encoding
		if name == "" {
			name = DefaultEncoding
		}
		enc, err := tiktoken.GetEncoding(name)
		if err == nil {
			c.enc = enc
		}
	})

	if c.enc == nil {
		return len(strings.Fields(text))
	}
	return len(c.enc.Encode(text, nil, nil))
}

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
