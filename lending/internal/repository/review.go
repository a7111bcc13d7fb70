package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
)

var reviewColumns = []string{
	"id", "book_id", "user_id", "score", "content", "created_at", "updated_at",
}

const reviewsUserBookUniq = "reviews_user_book_uniq"

func (r *queries) CreateReview(ctx context.Context, review model.Review) (model.Review, error) {
	query, args, err := qb.Insert(reviewsTableName).
		Columns("book_id", "user_id", "score", "content").
		Values(review.BookID, review.UserID, review.Score, review.Content).
		Suffix("returning " + strings.Join(reviewColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Review{}, err
	}
	created, err := r.collectReview(ctx, query, args...)
	if err != nil {
		switch {
		case isUniqueViolation(err, reviewsUserBookUniq):
			return model.Review{}, errs.ErrAlreadyReviewed
		case isForeignKeyViolation(err):
			return model.Review{}, errs.ErrBookNotFound
		}
		return model.Review{}, errors.Wrap(err, "create review")
	}
	return created, nil
}

func (r *queries) GetReview(ctx context.Context, id int) (model.Review, error) {
	query, args, err := qb.Select(reviewColumns...).
		From(reviewsTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Review{}, err
	}
	review, err := r.collectReview(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Review{}, errs.ErrReviewNotFound
		}
		return model.Review{}, errors.Wrap(err, "get review")
	}
	return review, nil
}

func (r *queries) HasReview(ctx context.Context, userID, bookID int) (bool, error) {
	q := `select exists(select 1 from reviews where user_id = @user_id and book_id = @book_id)`
	var ok bool
	err := r.q.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "book_id": bookID}).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, "has review")
	}
	return ok, nil
}

func (r *queries) UpdateReview(ctx context.Context, review model.Review) (model.Review, error) {
	q := `
update reviews
    set score = @score,
        content = @content,
        updated_at = now()
where id = @id
returning ` + strings.Join(reviewColumns, ", ")
	args := pgx.NamedArgs{
		"id":      review.ID,
		"score":   review.Score,
		"content": review.Content,
	}
	updated, err := r.collectReview(ctx, q, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Review{}, errs.ErrReviewNotFound
		}
		return model.Review{}, errors.Wrap(err, "update review")
	}
	return updated, nil
}

func (r *queries) DeleteReview(ctx context.Context, id int) error {
	tag, err := r.q.Exec(ctx, `delete from reviews where id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return errors.Wrap(err, "delete review")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrReviewNotFound
	}
	return nil
}

func (r *queries) ListBookReviews(ctx context.Context, bookID int) ([]model.Review, error) {
	query, args, err := qb.Select(reviewColumns...).
		From(reviewsTableName).
		Where(sq.Eq{"book_id": bookID}).
		OrderBy("id desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	reviews, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Review])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return reviews, nil
}

func (r *queries) collectReview(ctx context.Context, query string, args ...any) (model.Review, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.Review{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Review])
}
