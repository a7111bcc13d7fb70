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

var bookColumns = []string{
	"id", "title", "description", "publisher", "published_date", "rating", "amount", "is_deleted", "created_at",
}

const booksTitleUniq = "books_title_uniq"

func (r *queries) Reserve(ctx context.Context, bookID int) error {
	q := `
update books
    set amount = amount - 1
where id = @id and amount > 0 and not is_deleted
returning amount`
	var left int
	err := r.q.QueryRow(ctx, q, pgx.NamedArgs{"id": bookID}).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrInsufficientStock
		}
		return errors.Wrap(err, "reserve")
	}
	r.log.Debug("Reserve", zap.Int("book_id", bookID), zap.Int("left", left))
	return nil
}

func (r *queries) Release(ctx context.Context, bookID int) error {
	q := `
update books
    set amount = amount + 1
where id = @id`
	tag, err := r.q.Exec(ctx, q, pgx.NamedArgs{"id": bookID})
	if err != nil {
		return errors.Wrap(err, "release")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrBookNotFound
	}
	return nil
}

func (r *queries) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "description", "publisher", "published_date", "amount").
		Values(book.Title, book.Description, book.Publisher, book.PublishedDate, book.Amount).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	created, err := r.collectBook(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, booksTitleUniq) {
			return model.Book{}, errs.ErrBookTitleTaken
		}
		r.log.Error("CreateBook", zap.String("q", query), zap.Error(err))
		return model.Book{}, errors.Wrap(err, "create book")
	}
	return created, nil
}

func (r *queries) GetBook(ctx context.Context, id int) (model.Book, error) {
	return r.getBook(ctx, id, false)
}

// LockBook reads a book and holds its row lock until the transaction ends.
func (r *queries) LockBook(ctx context.Context, id int) (model.Book, error) {
	return r.getBook(ctx, id, true)
}

func (r *queries) getBook(ctx context.Context, id int, lock bool) (model.Book, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Where("not is_deleted")
	if lock {
		b = b.Suffix("for update")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.Book{}, err
	}
	book, err := r.collectBook(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		return model.Book{}, errors.Wrap(err, "get book")
	}
	return book, nil
}

func (r *queries) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName).
		Where("not is_deleted").
		OrderBy("id")
	if limit, off := offset(page, size); limit != 0 {
		b = b.Limit(limit).Offset(off)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.ListBooks{}, errors.Wrap(err, "list books")
	}
	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return model.ListBooks{}, errors.Wrap(err, "pgx.CollectRows")
	}

	var total int
	if err = r.q.QueryRow(ctx, `select count(*) from books where not is_deleted`).Scan(&total); err != nil {
		return model.ListBooks{}, errors.Wrap(err, "count books")
	}
	return model.ListBooks{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: total,
		},
		Items: books,
	}, nil
}

func (r *queries) UpdateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		Set("title", book.Title).
		Set("description", book.Description).
		Set("publisher", book.Publisher).
		Set("published_date", book.PublishedDate).
		Set("amount", book.Amount).
		Where(sq.Eq{"id": book.ID}).
		Where("not is_deleted").
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	updated, err := r.collectBook(ctx, query, args...)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.Book{}, errs.ErrBookNotFound
		case isUniqueViolation(err, booksTitleUniq):
			return model.Book{}, errs.ErrBookTitleTaken
		}
		return model.Book{}, errors.Wrap(err, "update book")
	}
	return updated, nil
}

func (r *queries) DeleteBook(ctx context.Context, id int) error {
	q := `update books set is_deleted = true where id = @id and not is_deleted`
	tag, err := r.q.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return errors.Wrap(err, "delete book")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrBookNotFound
	}
	return nil
}

func (r *queries) RefreshBookRating(ctx context.Context, bookID int) error {
	q := `
update books
    set rating = (select avg(score) from reviews where book_id = @id)
where id = @id`
	_, err := r.q.Exec(ctx, q, pgx.NamedArgs{"id": bookID})
	return errors.Wrap(err, "refresh rating")
}

func (r *queries) collectBook(ctx context.Context, query string, args ...any) (model.Book, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
}
