package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Suggester produces reply suggestions for a draft given the conversation
// history. Implementations are treated as external collaborators: errors are
// swallowed by the caller and degrade to no suggestions.
type Suggester interface {
	Suggest(ctx context.Context, history, draft string) ([]string, error)
}

// SmartReplyService debounces suggestion fetches while the user types. A new
// draft supersedes any in-flight fetch; stale results are dropped rather
// than delivered.
type SmartReplyService struct {
	suggester Suggester
	debounced func(func())
	count     int

	mu  sync.Mutex
	gen uint64
}

// NewSmartReplyService returns a SmartReplyService firing after the given
// typing pause and delivering at most count suggestions per draft.
func NewSmartReplyService(suggester Suggester, pause time.Duration, count int) *SmartReplyService {
	return &SmartReplyService{
		suggester: suggester,
		debounced: debounce.New(pause),
		count:     count,
	}
}

// Draft schedules a suggestion fetch for the latest draft. deliver runs with
// the results once typing pauses, unless a newer draft supersedes this one.
// A failed fetch delivers an empty list; it is never surfaced as an error.
func (s *SmartReplyService) Draft(ctx context.Context, history, draft string, deliver func([]string)) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.debounced(func() {
		suggestions, err := s.suggester.Suggest(ctx, history, draft)
		if err != nil {
			suggestions = []string{}
		}
		if s.count > 0 && len(suggestions) > s.count {
			suggestions = suggestions[:s.count]
		}

		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if stale {
			return
		}
		deliver(suggestions)
	})
}

// LocalSuggester is the default Suggester: a small rule-based generator that
// needs no external service. It always returns three suggestions.
type LocalSuggester struct{}

func (LocalSuggester) Suggest(_ context.Context, history, draft string) ([]string, error) {
	text := strings.ToLower(draft)
	if text == "" {
		text = strings.ToLower(history)
	}
	switch {
	case strings.Contains(text, "?"):
		return []string{"Yes, sounds good!", "No, not really.", "Let me get back to you."}, nil
	case strings.Contains(text, "thank"):
		return []string{"You're welcome!", "Anytime!", "Happy to help."}, nil
	case strings.Contains(text, "hello") || strings.Contains(text, "hey") || strings.Contains(text, "hi "):
		return []string{"Hey! How are you?", "Hello!", "Hi, what's up?"}, nil
	default:
		return []string{"Sounds good!", "Tell me more.", "Got it."}, nil
	}
}
