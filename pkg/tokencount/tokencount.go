// Package tokencount estimates token counts for text re-entering the
// conversation. The default estimator is the conservative four-characters-
// per-token approximation; an accurate tiktoken-backed counter is available
// for callers that know which model they are budgeting for.
package tokencount

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens in a string.
type Estimator interface {
	Count(text string) int
}

// Approximate is the fallback estimator: ceil(len(text) / 4).
type Approximate struct{}

// Count implements Estimator.
func (Approximate) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

var defaultEstimator Estimator = Approximate{}

// Default returns the package-wide fallback estimator.
func Default() Estimator { return defaultEstimator }

// Tiktoken wraps a tiktoken-go encoding for a specific model, falling back
// to cl100k_base when the model is unrecognised.
type Tiktoken struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken
	model    string
}

var (
	encodingCache = map[string]*tiktoken.Tiktoken{}
	cacheMu       sync.RWMutex
)

// NewTiktoken builds an accurate counter for the named model.
func NewTiktoken(model string) (*Tiktoken, error) {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &Tiktoken{encoding: cached, model: model}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("tokencount: no encoding available for %q: %w", model, err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = enc
	cacheMu.Unlock()

	return &Tiktoken{encoding: enc, model: model}, nil
}

// Count implements Estimator using the real BPE tokenizer.
func (t *Tiktoken) Count(text string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.encoding.Encode(text, nil, nil))
}
