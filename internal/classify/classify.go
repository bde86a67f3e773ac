// Package classify asks a language model for an advisory category and a
// short tip for an expense. Answers are suggestions only; callers must
// treat ErrUnavailable as a normal outcome.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"faturas/internal/cache"
	"faturas/internal/core"
)

// ErrUnavailable is returned when no suggestion could be produced.
var ErrUnavailable = errors.New("classification unavailable")

type Suggestion struct {
	Category core.Category `json:"category"`
	Tip      string        `json:"tip"`
}

type Classifier interface {
	Classify(ctx context.Context, description string, amount core.Money) (Suggestion, error)
}

// Disabled is used when no model is configured.
type Disabled struct{}

func (Disabled) Classify(context.Context, string, core.Money) (Suggestion, error) {
	return Suggestion{}, ErrUnavailable
}

// parseSuggestion decodes a model answer and drops categories outside the
// known set.
func parseSuggestion(text string) (Suggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Suggestion{}, ErrUnavailable
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Suggestion{}, fmt.Errorf("%w: decode answer: %v", ErrUnavailable, err)
	}
	if !s.Category.IsValid() {
		return Suggestion{}, fmt.Errorf("%w: unknown category %q", ErrUnavailable, s.Category)
	}
	s.Tip = strings.TrimSpace(s.Tip)
	return s, nil
}

// Cached memoises suggestions by normalised description and amount.
type Cached struct {
	next  Classifier
	cache cache.Cache[Suggestion]
}

func NewCached(next Classifier, c cache.Cache[Suggestion]) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Classify(ctx context.Context, description string, amount core.Money) (Suggestion, error) {
	key := strings.ToLower(strings.TrimSpace(description)) + "|" + amount.String()
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}
	s, err := c.next.Classify(ctx, description, amount)
	if err != nil {
		return Suggestion{}, err
	}
	c.cache.Set(key, s)
	return s, nil
}
