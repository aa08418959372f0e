package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/logging"
	"bookshelf/pkg/domain"
)

// Operation names used for metrics and logs.
const (
	OpList          = "list"
	OpListAvailable = "list_available"
	OpCreate        = "create"
	OpUpdate        = "update"
	OpDelete        = "delete"
)

// Service exposes the book operations. Every call loads the collection fresh
// from the store; writes save the whole collection back. Calls are serialized
// so a load-mutate-save cycle never interleaves with another.
type Service struct {
	mu      sync.Mutex
	store   *Store
	metrics MetricsRecorder
	logger  *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics sets the metrics sink.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, metrics: noopMetrics{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every book in stored order.
func (s *Service) List(ctx context.Context) (domain.Collection, error) {
	var out domain.Collection
	err := s.view(ctx, OpList, func(books domain.Collection) {
		out = books
	})
	return out, err
}

// ListAvailable returns the books flagged available, in stored order.
func (s *Service) ListAvailable(ctx context.Context) (domain.Collection, error) {
	var out domain.Collection
	err := s.view(ctx, OpListAvailable, func(books domain.Collection) {
		out = books.Available()
	})
	return out, err
}

// Create appends a book with id max+1.
func (s *Service) Create(ctx context.Context, req domain.CreateBookRequest) (domain.Book, error) {
	var created domain.Book
	err := s.mutate(ctx, OpCreate, req.Validate, func(books domain.Collection) (domain.Collection, error) {
		created = req.Book(books.NextID())
		return append(books, created), nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	return created, nil
}

// Update applies the present fields of req to the book with id.
func (s *Service) Update(ctx context.Context, id int, req domain.UpdateBookRequest) (domain.Book, error) {
	var updated domain.Book
	err := s.mutate(ctx, OpUpdate, req.Validate, func(books domain.Collection) (domain.Collection, error) {
		idx := books.IndexOf(id)
		if idx < 0 {
			return nil, domain.ErrNotFound
		}
		updated = req.Apply(books[idx])
		books[idx] = updated
		return books, nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	return updated, nil
}

// Delete removes the book with id and returns it.
func (s *Service) Delete(ctx context.Context, id int) (domain.Book, error) {
	var removed domain.Book
	err := s.mutate(ctx, OpDelete, nil, func(books domain.Collection) (domain.Collection, error) {
		idx := books.IndexOf(id)
		if idx < 0 {
			return nil, domain.ErrNotFound
		}
		removed = books[idx]
		return books.Remove(idx), nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	return removed, nil
}

func (s *Service) view(ctx context.Context, op string, fn func(domain.Collection)) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, op, err, start) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	books, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.metrics.ObserveCollectionSize(len(books))
	fn(books)
	return nil
}

// mutate validates before touching storage, then runs one load-apply-save
// cycle under the service lock. Nothing is saved when apply fails.
func (s *Service) mutate(ctx context.Context, op string, validate func() error, apply func(domain.Collection) (domain.Collection, error)) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, op, err, start) }()

	if validate != nil {
		if err := validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	books, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	next, err := apply(books.Clone())
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	s.metrics.ObserveCollectionSize(len(next))
	return nil
}

func (s *Service) observe(ctx context.Context, op string, err error, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.Observe(ctx, op, err, elapsed)
	if err != nil {
		logging.FromContext(ctx, s.logger).Debug("book operation failed",
			zap.String("operation", op),
			zap.String("result", ResultLabel(err)),
			zap.Error(err),
		)
	}
}
