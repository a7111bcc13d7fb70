package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/model"
)

// Inventory owns the available-copy count of a book.
type Inventory interface {
	// Reserve takes one copy or fails with errs.ErrInsufficientStock
	// leaving the count untouched.
	Reserve(ctx context.Context, bookID int) error
	Release(ctx context.Context, bookID int) error
}

type Books interface {
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	LockBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, book model.Book) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	RefreshBookRating(ctx context.Context, bookID int) error
}

type Borrows interface {
	CreateBorrow(ctx context.Context, bookID, userID int) (model.Borrow, error)
	GetBorrow(ctx context.Context, id int) (model.Borrow, error)
	LockBorrow(ctx context.Context, id int) (model.Borrow, error)
	// LatestBorrow returns the user's borrow with the highest id.
	LatestBorrow(ctx context.Context, userID int) (model.Borrow, bool, error)
	UpdateBorrow(ctx context.Context, borrow model.Borrow) (model.Borrow, error)
	ListUserBorrows(ctx context.Context, userID int) ([]model.BorrowDetail, error)
	ListAllBorrows(ctx context.Context) ([]model.BorrowDetail, error)
	HasReturnedBorrow(ctx context.Context, userID, bookID int) (bool, error)
	AddBorrowHistory(ctx context.Context, h model.BorrowHistory) error
	ListBorrowHistory(ctx context.Context, borrowID int) ([]model.BorrowHistory, error)
}

type Reviews interface {
	CreateReview(ctx context.Context, review model.Review) (model.Review, error)
	GetReview(ctx context.Context, id int) (model.Review, error)
	HasReview(ctx context.Context, userID, bookID int) (bool, error)
	UpdateReview(ctx context.Context, review model.Review) (model.Review, error)
	DeleteReview(ctx context.Context, id int) error
	ListBookReviews(ctx context.Context, bookID int) ([]model.Review, error)
}

type Users interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id int) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	LockUser(ctx context.Context, id int) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, user model.User) (model.User, error)
	DeleteUser(ctx context.Context, id int) error
	// LockActiveAdmins locks and returns the ids of all active admins.
	LockActiveAdmins(ctx context.Context) ([]int, error)
}

// UnitOfWork is the set of stores bound to one transaction.
type UnitOfWork interface {
	Inventory
	Books
	Borrows
	Reviews
	Users
}

type Repository interface {
	UnitOfWork
	// Transact runs fn in a single transaction. Any error rolls back
	// everything fn wrote.
	Transact(ctx context.Context, fn func(uow UnitOfWork) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	q   querier
	log *zap.Logger
}

type repository struct {
	*queries
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	if db == nil {
		return nil, errors.New("nil pool")
	}
	return &repository{
		queries: &queries{q: db, log: log.Named("repo")},
		db:      db,
	}, nil
}

func (r *repository) Transact(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return pgx.BeginTxFunc(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&queries{q: tx, log: r.log})
	})
}

const (
	usersTableName         = `users`
	booksTableName         = `books`
	borrowsTableName       = `borrows`
	borrowHistoryTableName = `borrow_history`
	reviewsTableName       = `reviews`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// offset converts 1-based paging to limit and offset. A zero limit means
// unpaged; a missing page with a size is the first page.
func offset(page, size int) (uint64, uint64) {
	if size <= 0 {
		return 0, 0
	}
	if page <= 0 {
		page = 1
	}
	return uint64(size), uint64((page - 1) * size)
}
