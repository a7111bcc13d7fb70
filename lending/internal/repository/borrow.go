package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
)

var borrowColumns = []string{
	"id", "book_id", "user_id", "status", "created_at", "borrow_date", "return_date",
}

const borrowsOneActivePerUser = "borrows_one_active_per_user"

func (r *queries) CreateBorrow(ctx context.Context, bookID, userID int) (model.Borrow, error) {
	query, args, err := qb.Insert(borrowsTableName).
		Columns("book_id", "user_id", "status").
		Values(bookID, userID, string(model.StatusPending)).
		Suffix("returning " + strings.Join(borrowColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Borrow{}, err
	}
	borrow, err := r.collectBorrow(ctx, query, args...)
	if err != nil {
		switch {
		case isUniqueViolation(err, borrowsOneActivePerUser):
			return model.Borrow{}, errs.ErrUserHasActiveBorrow
		case isForeignKeyViolation(err):
			return model.Borrow{}, errs.ErrBookNotFound
		}
		r.log.Error("CreateBorrow", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return model.Borrow{}, errors.Wrap(err, "create borrow")
	}
	return borrow, nil
}

func (r *queries) GetBorrow(ctx context.Context, id int) (model.Borrow, error) {
	return r.getBorrow(ctx, id, false)
}

func (r *queries) LockBorrow(ctx context.Context, id int) (model.Borrow, error) {
	return r.getBorrow(ctx, id, true)
}

func (r *queries) getBorrow(ctx context.Context, id int, lock bool) (model.Borrow, error) {
	b := qb.Select(borrowColumns...).
		From(borrowsTableName).
		Where(sq.Eq{"id": id})
	if lock {
		b = b.Suffix("for update")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.Borrow{}, err
	}
	borrow, err := r.collectBorrow(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Borrow{}, errs.ErrBorrowNotFound
		}
		return model.Borrow{}, errors.Wrap(err, "get borrow")
	}
	return borrow, nil
}

func (r *queries) LatestBorrow(ctx context.Context, userID int) (model.Borrow, bool, error) {
	query, args, err := qb.Select(borrowColumns...).
		From(borrowsTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id desc").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Borrow{}, false, err
	}
	borrow, err := r.collectBorrow(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Borrow{}, false, nil
		}
		return model.Borrow{}, false, errors.Wrap(err, "latest borrow")
	}
	return borrow, true, nil
}

func (r *queries) UpdateBorrow(ctx context.Context, borrow model.Borrow) (model.Borrow, error) {
	q := `
update borrows
    set status = @status,
        borrow_date = @borrow_date,
        return_date = @return_date
where id = @id
returning ` + strings.Join(borrowColumns, ", ")
	args := pgx.NamedArgs{
		"id":          borrow.ID,
		"status":      string(borrow.Status),
		"borrow_date": borrow.BorrowDate,
		"return_date": borrow.ReturnDate,
	}
	updated, err := r.collectBorrow(ctx, q, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Borrow{}, errs.ErrBorrowNotFound
		}
		return model.Borrow{}, errors.Wrap(err, "update borrow")
	}
	return updated, nil
}

func (r *queries) ListUserBorrows(ctx context.Context, userID int) ([]model.BorrowDetail, error) {
	query, args, err := borrowDetailQuery(false).
		Where(sq.Eq{"br.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.collectBorrowDetails(ctx, false, query, args...)
}

func (r *queries) ListAllBorrows(ctx context.Context) ([]model.BorrowDetail, error) {
	query, args, err := borrowDetailQuery(true).ToSql()
	if err != nil {
		return nil, err
	}
	return r.collectBorrowDetails(ctx, true, query, args...)
}

func borrowDetailQuery(withUser bool) sq.SelectBuilder {
	cols := []string{
		"br.id", "br.book_id", "br.user_id", "br.status", "br.created_at", "br.borrow_date", "br.return_date",
		"b.title",
	}
	if withUser {
		cols = append(cols, "u.email", "u.full_name")
	}
	b := qb.Select(cols...).
		From(borrowsTableName + " br").
		Join(booksTableName + " b on b.id = br.book_id")
	if withUser {
		b = b.Join(usersTableName + " u on u.id = br.user_id")
	}
	return b.OrderBy("br.id desc")
}

func (r *queries) collectBorrowDetails(ctx context.Context, withUser bool, query string, args ...any) ([]model.BorrowDetail, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list borrows")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.BorrowDetail, error) {
		var (
			d      model.BorrowDetail
			status string
			user   model.UserSummary
		)
		dest := []any{
			&d.ID, &d.BookID, &d.UserID, &status, &d.CreatedAt, &d.BorrowDate, &d.ReturnDate,
			&d.Book.Title,
		}
		if withUser {
			dest = append(dest, &user.Email, &user.FullName)
		}
		if err := row.Scan(dest...); err != nil {
			return model.BorrowDetail{}, err
		}
		d.Status = model.Status(status)
		d.Book.ID = d.BookID
		if withUser {
			user.ID = d.UserID
			d.User = &user
		}
		return d, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return items, nil
}

func (r *queries) HasReturnedBorrow(ctx context.Context, userID, bookID int) (bool, error) {
	q := `
select exists(
    select 1 from borrows
    where user_id = @user_id and book_id = @book_id and status = @status
)`
	args := pgx.NamedArgs{
		"user_id": userID,
		"book_id": bookID,
		"status":  string(model.StatusReturned),
	}
	var ok bool
	if err := r.q.QueryRow(ctx, q, args).Scan(&ok); err != nil {
		return false, errors.Wrap(err, "has returned borrow")
	}
	return ok, nil
}

func (r *queries) AddBorrowHistory(ctx context.Context, h model.BorrowHistory) error {
	var from *string
	if h.FromStatus != nil {
		s := string(*h.FromStatus)
		from = &s
	}
	query, args, err := qb.Insert(borrowHistoryTableName).
		Columns("borrow_id", "from_status", "to_status", "actor_id").
		Values(h.BorrowID, from, string(h.ToStatus), h.ActorID).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = r.q.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "add borrow history")
	}
	return nil
}

func (r *queries) ListBorrowHistory(ctx context.Context, borrowID int) ([]model.BorrowHistory, error) {
	query, args, err := qb.Select("id", "borrow_id", "from_status", "to_status", "actor_id", "created_at").
		From(borrowHistoryTableName).
		Where(sq.Eq{"borrow_id": borrowID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list borrow history")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.BorrowHistory, error) {
		var (
			h        model.BorrowHistory
			from     *string
			toStatus string
		)
		if err := row.Scan(&h.ID, &h.BorrowID, &from, &toStatus, &h.ActorID, &h.CreatedAt); err != nil {
			return model.BorrowHistory{}, err
		}
		if from != nil {
			s := model.Status(*from)
			h.FromStatus = &s
		}
		h.ToStatus = model.Status(toStatus)
		return h, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return items, nil
}

func (r *queries) collectBorrow(ctx context.Context, query string, args ...any) (model.Borrow, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.Borrow{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Borrow])
}
