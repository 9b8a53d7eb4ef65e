package search

import (
	"context"
	"fmt"

	"zlibsearch/internal/logger"
)

// Engine finds books. Implementations must be safe for concurrent use;
// the order of the returned slice is the ranking.
type Engine interface {
	Search(ctx context.Context, query string, limit uint) ([]Book, error)
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, query string, limit uint) ([]Book, error)

func (f EngineFunc) Search(ctx context.Context, query string, limit uint) ([]Book, error) {
	return f(ctx, query, limit)
}

// Observer receives the outcome of every engine call.
type Observer interface {
	ObserveSearch(books int, err error)
}

// Service is the shared handle the HTTP layer holds on the engine.
type Service struct {
	engine   Engine
	observer Observer
}

// NewService wraps engine. observer may be nil.
func NewService(engine Engine, observer Observer) *Service {
	return &Service{engine: engine, observer: observer}
}

// Search forwards q to the engine verbatim and wraps the books in a Result.
// Nothing is reordered, filtered or clamped here.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	defer logger.Track(ctx, "engine search")()

	books, err := s.engine.Search(ctx, q.Query, q.Limit)
	if s.observer != nil {
		s.observer.ObserveSearch(len(books), err)
	}
	if err != nil {
		return nil, fmt.Errorf("engine search: %w", err)
	}

	if books == nil {
		books = []Book{} // encode as [] not null
	}
	return &Result{Books: books}, nil
}
