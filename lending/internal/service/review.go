package service

import (
	"context"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/repository"
)

func validScore(score float64) bool {
	return score >= model.MinScore && score <= model.MaxScore
}

// CreateReview is allowed once per book and only after the user returned it.
func (s *Service) CreateReview(ctx context.Context, userID, bookID int, req model.CreateReviewRequest) (model.Review, error) {
	if !validScore(req.Score) {
		return model.Review{}, errs.ErrInvalidScore
	}
	var review model.Review
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		if _, err := uow.GetBook(ctx, bookID); err != nil {
			return err
		}
		returned, err := uow.HasReturnedBorrow(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if !returned {
			return errs.ErrReviewNotAllowed
		}
		reviewed, err := uow.HasReview(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if reviewed {
			return errs.ErrAlreadyReviewed
		}
		review, err = uow.CreateReview(ctx, model.Review{
			BookID:  bookID,
			UserID:  userID,
			Score:   req.Score,
			Content: req.Content,
		})
		if err != nil {
			return err
		}
		return uow.RefreshBookRating(ctx, bookID)
	})
	if err != nil {
		return model.Review{}, err
	}
	s.invalidateBooks(ctx, bookID)
	return review, nil
}

func (s *Service) CanReview(ctx context.Context, userID, bookID int) (bool, error) {
	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return false, err
	}
	returned, err := s.repo.HasReturnedBorrow(ctx, userID, bookID)
	if err != nil || !returned {
		return false, err
	}
	reviewed, err := s.repo.HasReview(ctx, userID, bookID)
	if err != nil {
		return false, err
	}
	return !reviewed, nil
}

func (s *Service) UpdateReview(ctx context.Context, userID, reviewID int, req model.UpdateReviewRequest) (model.Review, error) {
	if req.Score != nil && !validScore(*req.Score) {
		return model.Review{}, errs.ErrInvalidScore
	}
	var review model.Review
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return errs.ErrNotOwner
		}
		if req.Score != nil {
			current.Score = *req.Score
		}
		if req.Content != nil {
			current.Content = req.Content
		}
		if review, err = uow.UpdateReview(ctx, current); err != nil {
			return err
		}
		return uow.RefreshBookRating(ctx, review.BookID)
	})
	if err != nil {
		return model.Review{}, err
	}
	s.invalidateBooks(ctx, review.BookID)
	return review, nil
}

func (s *Service) DeleteReview(ctx context.Context, userID, reviewID int) error {
	var bookID int
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return errs.ErrNotOwner
		}
		bookID = current.BookID
		if err = uow.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		return uow.RefreshBookRating(ctx, bookID)
	})
	if err != nil {
		return err
	}
	s.invalidateBooks(ctx, bookID)
	return nil
}

func (s *Service) ListBookReviews(ctx context.Context, bookID int) ([]model.Review, error) {
	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.repo.ListBookReviews(ctx, bookID)
}
