package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/repository"
)

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, errs.ErrInvalidDate
	}
	return &d, nil
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	if req.Amount < 0 {
		return model.Book{}, errs.ErrInvalidAmount
	}
	published, err := parseDate(req.PublishedDate)
	if err != nil {
		return model.Book{}, err
	}
	return s.repo.CreateBook(ctx, model.Book{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Publisher:     req.Publisher,
		PublishedDate: published,
		Amount:        req.Amount,
	})
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	if book, ok := s.cache.Get(ctx, id); ok {
		return book, nil
	}
	gen := s.bookVersion(id)
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	if s.bookVersion(id) != gen {
		return book, nil
	}
	s.cache.Set(ctx, book)
	// an invalidation that slipped in before Set landed must win
	if s.bookVersion(id) != gen {
		s.cache.Invalidate(ctx, id)
	}
	return book, nil
}

// GetBookDetail loads the book and its reviews concurrently.
func (s *Service) GetBookDetail(ctx context.Context, id int) (model.BookDetail, error) {
	var (
		book    model.Book
		reviews []model.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		book, err = s.GetBook(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.repo.ListBookReviews(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.BookDetail{}, err
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return model.BookDetail{Book: book, Reviews: reviews}, nil
}

func (s *Service) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	if size > 0 && page <= 0 {
		page = 1
	}
	return s.repo.ListBooks(ctx, page, size)
}

// UpdateBook applies a partial edit. Amount is an absolute stock adjustment
// and is taken under the book row lock so it cannot race a reserve.
func (s *Service) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	if req.Amount != nil && *req.Amount < 0 {
		return model.Book{}, errs.ErrInvalidAmount
	}
	var book model.Book
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.LockBook(ctx, id)
		if err != nil {
			return err
		}
		if req.Title != nil {
			current.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		if req.Publisher != nil {
			current.Publisher = *req.Publisher
		}
		if req.PublishedDate != nil {
			if current.PublishedDate, err = parseDate(*req.PublishedDate); err != nil {
				return err
			}
		}
		if req.Amount != nil {
			current.Amount = *req.Amount
		}
		book, err = uow.UpdateBook(ctx, current)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	s.invalidateBooks(ctx, id)
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.invalidateBooks(ctx, id)
	return nil
}
