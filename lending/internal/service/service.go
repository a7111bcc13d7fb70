package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/publisher"
	"github.com/Astemirdum/library-lending/lending/internal/repository"
	"github.com/Astemirdum/library-lending/pkg/auth"
)

type BookCache interface {
	Get(ctx context.Context, id int) (model.Book, bool)
	Set(ctx context.Context, book model.Book)
	Invalidate(ctx context.Context, ids ...int)
}

type Service struct {
	log       *zap.Logger
	repo      repository.Repository
	tokens    *auth.Tokens
	publisher publisher.Publisher
	cache     BookCache
	now       func() time.Time

	// bookGen counts invalidations per book; a read only fills the cache
	// when no invalidation ran while it was in flight.
	bookMu  sync.Mutex
	bookGen map[int]uint64
}

type Option func(s *Service)

func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithBookCache(c BookCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo repository.Repository, tokens *auth.Tokens, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log.Named("service"),
		repo:      repo,
		tokens:    tokens,
		publisher: publisher.NewNoop(),
		cache:     noCache{},
		now:       time.Now,
		bookGen:   make(map[int]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record appends the transition to the borrow history inside the caller's
// transaction and returns the event to publish once it commits.
func (s *Service) record(ctx context.Context, uow repository.UnitOfWork, borrow model.Borrow, from *model.Status, actorID int) (model.BorrowEvent, error) {
	h := model.BorrowHistory{
		BorrowID:   borrow.ID,
		FromStatus: from,
		ToStatus:   borrow.Status,
		ActorID:    actorID,
	}
	if err := uow.AddBorrowHistory(ctx, h); err != nil {
		return model.BorrowEvent{}, err
	}
	return model.BorrowEvent{
		MessageID:  uuid.NewString(),
		BorrowID:   borrow.ID,
		BookID:     borrow.BookID,
		UserID:     borrow.UserID,
		ActorID:    actorID,
		From:       from,
		To:         borrow.Status,
		OccurredAt: s.now().UTC(),
	}, nil
}

func (s *Service) publish(ctx context.Context, event model.BorrowEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish borrow event",
			zap.String("message_id", event.MessageID),
			zap.Int("borrow_id", event.BorrowID),
			zap.Error(err))
	}
}

func (s *Service) bookVersion(id int) uint64 {
	s.bookMu.Lock()
	defer s.bookMu.Unlock()
	return s.bookGen[id]
}

// invalidateBooks must run after the change is committed.
func (s *Service) invalidateBooks(ctx context.Context, ids ...int) {
	s.bookMu.Lock()
	for _, id := range ids {
		s.bookGen[id]++
	}
	s.bookMu.Unlock()
	s.cache.Invalidate(ctx, ids...)
}

type noCache struct{}

func (noCache) Get(context.Context, int) (model.Book, bool) { return model.Book{}, false }
func (noCache) Set(context.Context, model.Book)             {}
func (noCache) Invalidate(context.Context, ...int)          {}
