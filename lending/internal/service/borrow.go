package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/lifecycle"
	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/repository"
)

// RequestBorrow opens a pending loan. Eligibility is decided by the user's
// most recent borrow only.
func (s *Service) RequestBorrow(ctx context.Context, userID, bookID int) (model.Borrow, error) {
	var (
		borrow model.Borrow
		event  model.BorrowEvent
	)
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		// serialises concurrent requests of one user
		if _, err := uow.LockUser(ctx, userID); err != nil {
			return err
		}
		if _, err := uow.GetBook(ctx, bookID); err != nil {
			return err
		}
		latest, ok, err := uow.LatestBorrow(ctx, userID)
		if err != nil {
			return err
		}
		if ok && latest.Status.Active() {
			return errs.ErrUserHasActiveBorrow
		}
		if borrow, err = uow.CreateBorrow(ctx, bookID, userID); err != nil {
			return err
		}
		event, err = s.record(ctx, uow, borrow, nil, userID)
		return err
	})
	if err != nil {
		return model.Borrow{}, err
	}
	s.publish(ctx, event)
	return borrow, nil
}

func (s *Service) ApproveBorrow(ctx context.Context, actorID, borrowID int) (model.Borrow, error) {
	return s.transition(ctx, transitionInput{
		borrowID: borrowID,
		actorID:  actorID,
		event:    lifecycle.EventApprove,
	})
}

func (s *Service) DeclineBorrow(ctx context.Context, actorID, borrowID int) (model.Borrow, error) {
	return s.transition(ctx, transitionInput{
		borrowID: borrowID,
		actorID:  actorID,
		event:    lifecycle.EventDecline,
	})
}

// ReturnBorrow is the self-service return. Loans of other users and loans
// that are not active look the same as missing ones.
func (s *Service) ReturnBorrow(ctx context.Context, userID, borrowID int) (model.Borrow, error) {
	return s.transition(ctx, transitionInput{
		borrowID: borrowID,
		actorID:  userID,
		owner:    userID,
		event:    lifecycle.EventReturn,
	})
}

func (s *Service) AdminOverrideBorrow(ctx context.Context, actorID, borrowID int, req model.AdminUpdateBorrowRequest) (model.Borrow, error) {
	return s.transition(ctx, transitionInput{
		borrowID:   borrowID,
		actorID:    actorID,
		event:      lifecycle.EventOverride,
		target:     req.Status,
		returnDate: req.ReturnDate,
	})
}

type transitionInput struct {
	borrowID   int
	actorID    int
	owner      int
	event      lifecycle.Event
	target     model.Status
	returnDate *time.Time
}

func (s *Service) transition(ctx context.Context, in transitionInput) (model.Borrow, error) {
	var (
		borrow       model.Borrow
		event        model.BorrowEvent
		stockChanged bool
	)
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.LockBorrow(ctx, in.borrowID)
		if err != nil {
			return err
		}
		if in.owner != 0 && current.UserID != in.owner {
			return errs.ErrBorrowNotFound
		}
		tr, err := lifecycle.Next(current.Status, in.event, in.target)
		if err != nil {
			if in.event == lifecycle.EventReturn {
				return errs.ErrBorrowNotFound
			}
			return err
		}

		switch tr.Effect {
		case lifecycle.StockReserve:
			err = uow.Reserve(ctx, current.BookID)
			switch {
			case err == nil:
				stockChanged = true
			case errors.Is(err, errs.ErrInsufficientStock) && tr.OnInsufficient != "":
				tr.To, tr.Effect = tr.OnInsufficient, lifecycle.StockNone
			case errors.Is(err, errs.ErrInsufficientStock):
				return errs.ErrBookNotAvailable
			default:
				return err
			}
		case lifecycle.StockRelease:
			if err = uow.Release(ctx, current.BookID); err != nil {
				return err
			}
			stockChanged = true
		}

		next := current
		next.Status = tr.To
		now := s.now()
		if tr.SetsBorrowDate() {
			next.BorrowDate = &now
		}
		if tr.SetsReturnDate() {
			returned := now
			if in.returnDate != nil {
				returned = *in.returnDate
			}
			next.ReturnDate = &returned
		}
		if borrow, err = uow.UpdateBorrow(ctx, next); err != nil {
			return err
		}
		from := current.Status
		event, err = s.record(ctx, uow, borrow, &from, in.actorID)
		return err
	})
	if err != nil {
		return model.Borrow{}, err
	}

	s.log.Debug("borrow transition",
		zap.Int("borrow_id", borrow.ID),
		zap.String("event", string(in.event)),
		zap.Stringp("from", (*string)(event.From)),
		zap.String("to", string(borrow.Status)))
	if stockChanged {
		s.invalidateBooks(ctx, borrow.BookID)
	}
	s.publish(ctx, event)
	return borrow, nil
}

func (s *Service) ListUserBorrows(ctx context.Context, userID int) ([]model.BorrowDetail, error) {
	return s.repo.ListUserBorrows(ctx, userID)
}

func (s *Service) ListAllBorrows(ctx context.Context) ([]model.BorrowDetail, error) {
	return s.repo.ListAllBorrows(ctx)
}

// BorrowHistory lists status changes of a loan visible to the caller.
func (s *Service) BorrowHistory(ctx context.Context, caller model.Principal, borrowID int) ([]model.BorrowHistory, error) {
	borrow, err := s.repo.GetBorrow(ctx, borrowID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && borrow.UserID != caller.UserID {
		return nil, errs.ErrBorrowNotFound
	}
	return s.repo.ListBorrowHistory(ctx, borrowID)
}
