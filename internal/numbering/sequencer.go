package numbering

import (
	"context"
	"fmt"
	"sync"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

// Sequencer assigns the next invoice number for a prefix. Assignment
// happens before submission so the number appears in the layout.
type Sequencer interface {
	Next(ctx context.Context, prefix string) (int64, error)
}

// SequenceSource reports the highest number already stored for a prefix
type SequenceSource interface {
	LastSequence(ctx context.Context, prefix string) (int64, error)
}

// StoreSequencer derives the next number from persisted invoices,
// bounded by the DIAN numbering resolution range.
type StoreSequencer struct {
	source    SequenceSource
	rangeFrom int64
	rangeTo   int64
}

// NewStoreSequencer creates a sequencer over a persistence source
func NewStoreSequencer(source SequenceSource, rangeFrom, rangeTo int64) *StoreSequencer {
	return &StoreSequencer{source: source, rangeFrom: rangeFrom, rangeTo: rangeTo}
}

func (s *StoreSequencer) Next(ctx context.Context, prefix string) (int64, error) {
	last, err := s.source.LastSequence(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("numbering: %w", err)
	}

	next := last + 1
	if next < s.rangeFrom {
		next = s.rangeFrom
	}
	if s.rangeTo > 0 && next > s.rangeTo {
		return 0, model.NewValidationError("sequence", next, "range",
			fmt.Sprintf("numbering resolution exhausted for prefix %s (range ends at %d)", prefix, s.rangeTo))
	}
	return next, nil
}

// MemorySequencer hands out numbers from memory. Used by tests and CLI
// dry runs; state does not survive the process.
type MemorySequencer struct {
	mu   sync.Mutex
	next map[string]int64
	from int64
}

// NewMemorySequencer starts every prefix at from
func NewMemorySequencer(from int64) *MemorySequencer {
	if from <= 0 {
		from = 1
	}
	return &MemorySequencer{next: make(map[string]int64), from: from}
}

func (s *MemorySequencer) Next(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.next[prefix]; !ok {
		s.next[prefix] = s.from
	}
	n := s.next[prefix]
	s.next[prefix]++
	return n, nil
}
