package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/pkg/auth"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []model.BorrowEvent
}

func (p *capturePublisher) Publish(_ context.Context, event model.BorrowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) list() []model.BorrowEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.BorrowEvent(nil), p.events...)
}

type fixture struct {
	svc  *Service
	repo *memRepo
	pub  *capturePublisher
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: newMemRepo(),
		pub:  &capturePublisher{},
		now:  time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	tokens := auth.NewTokens(auth.Config{Secret: "test-secret", TokenTTL: time.Hour, Issuer: "test"})
	f.svc = NewService(f.repo, tokens, zap.NewNop(),
		WithPublisher(f.pub),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) book(t *testing.T, amount int) model.Book {
	t.Helper()
	b, err := f.repo.CreateBook(context.Background(), model.Book{
		Title:  fmt.Sprintf("book-%d", f.repo.st.seq+1),
		Amount: amount,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) user(t *testing.T, role model.Role) model.User {
	t.Helper()
	u, err := f.repo.CreateUser(context.Background(), model.User{
		Email:    fmt.Sprintf("user%d@example.com", f.repo.st.seq+1),
		FullName: "Test User",
		Role:     role,
		IsActive: true,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) amount(t *testing.T, bookID int) int {
	t.Helper()
	return f.repo.st.books[bookID].Amount
}

func (f *fixture) borrowWith(t *testing.T, userID, bookID int, status model.Status) model.Borrow {
	t.Helper()
	b := model.Borrow{
		ID:        f.repo.st.next(),
		BookID:    bookID,
		UserID:    userID,
		Status:    status,
		CreatedAt: f.now,
	}
	f.repo.st.borrows[b.ID] = b
	return b
}
