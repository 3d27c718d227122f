// Package lookup resolves word definitions for the reading view. The
// dictionary is tried first; when it has no entry or fails, the encyclopedia
// summary endpoint serves as fallback. The store holds a single observable
// result slot: a new lookup supersedes any in-flight one, and a superseded
// lookup can never overwrite the newer result.
package lookup

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/errors"
	"github.com/folioapp/folio-server/internal/observe"
)

// Definer resolves a word to Markdown definitions.
type Definer interface {
	Define(ctx context.Context, word string) (string, error)
}

// Summarizer resolves a term to an encyclopedia summary.
type Summarizer interface {
	Summarize(ctx context.Context, term string) (Summary, error)
}

// Store coordinates lookups and exposes the current result.
type Store struct {
	dictionary   Definer
	encyclopedia Summarizer
	logger       *slog.Logger

	// seq tags each lookup; only the result bearing the latest tag may be
	// published to the slot. mu makes the token check and the slot write one
	// step, so a superseded result can never land after a Clear or a newer
	// lookup's publish.
	seq   atomic.Uint64
	mu    sync.Mutex
	value *observe.Value[domain.LookupResult]
}

// NewStore creates a lookup store.
func NewStore(dictionary Definer, encyclopedia Summarizer, logger *slog.Logger) *Store {
	return &Store{
		dictionary:   dictionary,
		encyclopedia: encyclopedia,
		logger:       logger,
		value:        observe.NewValue(domain.LookupResult{}),
	}
}

// Current returns the current lookup result.
func (s *Store) Current() domain.LookupResult {
	return s.value.Get()
}

// Subscribe returns a channel that receives the current result immediately
// and every change afterwards.
func (s *Store) Subscribe() (<-chan domain.LookupResult, func()) {
	return s.value.Subscribe()
}

// Clear empties the result slot and invalidates any in-flight lookup.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Add(1)
	s.value.Set(domain.LookupResult{})
}

// Lookup resolves a word and returns the result. The observable slot shows a
// loading state while the lookup runs and the final result once it finishes,
// unless a newer lookup started in the meantime. Remote failures fall back to
// the other source and are reported in the result's Error field only when
// both sources fail, never as a Go error.
func (s *Store) Lookup(ctx context.Context, word string) (domain.LookupResult, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return domain.LookupResult{}, errors.Validation("lookup word must not be empty")
	}

	token := s.seq.Add(1)
	s.publish(token, domain.LookupResult{Word: word, IsLoading: true})

	result := s.resolve(ctx, word)
	s.publish(token, result)
	return result, nil
}

// resolve tries the dictionary first and the encyclopedia on any dictionary
// miss or failure. A terminal error state is produced only when both sources
// came up empty or failed.
func (s *Store) resolve(ctx context.Context, word string) domain.LookupResult {
	content, dictErr := s.dictionary.Define(ctx, word)
	if dictErr == nil {
		return domain.LookupResult{
			Word:    word,
			Source:  domain.SourceDictionary,
			Content: content,
		}
	}
	if !errors.Is(dictErr, errors.ErrNotFound) {
		s.logger.Warn("dictionary lookup failed, trying encyclopedia", "word", word, "error", dictErr)
	}

	// No dictionary entry, or the dictionary is unreachable. Proper nouns and
	// multi-word terms often have an encyclopedia article instead.
	summary, encErr := s.encyclopedia.Summarize(ctx, word)
	if encErr == nil {
		return domain.LookupResult{
			Word:       word,
			Source:     domain.SourceEncyclopedia,
			Content:    summary.Content,
			ArticleURL: summary.ArticleURL,
		}
	}

	if errors.Is(dictErr, errors.ErrNotFound) && errors.Is(encErr, errors.ErrNotFound) {
		return domain.LookupResult{
			Word:   word,
			Source: domain.SourceEncyclopedia,
			Error:  "no results found",
		}
	}

	s.logger.Warn("lookup failed on both sources", "word", word,
		"dictionary_error", dictErr,
		"encyclopedia_error", encErr,
	)
	return domain.LookupResult{
		Word:   word,
		Source: domain.SourceEncyclopedia,
		Error:  "lookup unavailable",
	}
}

// publish writes to the slot only if token is still the latest lookup. The
// check and the write happen under the mutex Clear holds, so a stale result
// cannot slip in between the check and the write.
func (s *Store) publish(token uint64, result domain.LookupResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq.Load() != token {
		s.logger.Debug("lookup superseded, dropping result", "word", result.Word)
		return
	}
	s.value.Set(result)
}
