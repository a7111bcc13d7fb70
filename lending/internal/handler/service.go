package handler

import (
	"context"

	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error)
	Identify(ctx context.Context, token string) (model.Principal, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUser(ctx context.Context, id int) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, userID int, req model.UpdateUserRequest) (model.User, error)
	DeleteUser(ctx context.Context, userID int) error
}

type BookService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBookDetail(ctx context.Context, id int) (model.BookDetail, error)
	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
}

type BorrowService interface {
	RequestBorrow(ctx context.Context, userID, bookID int) (model.Borrow, error)
	ApproveBorrow(ctx context.Context, actorID, borrowID int) (model.Borrow, error)
	DeclineBorrow(ctx context.Context, actorID, borrowID int) (model.Borrow, error)
	ReturnBorrow(ctx context.Context, userID, borrowID int) (model.Borrow, error)
	AdminOverrideBorrow(ctx context.Context, actorID, borrowID int, req model.AdminUpdateBorrowRequest) (model.Borrow, error)
	ListUserBorrows(ctx context.Context, userID int) ([]model.BorrowDetail, error)
	ListAllBorrows(ctx context.Context) ([]model.BorrowDetail, error)
	BorrowHistory(ctx context.Context, caller model.Principal, borrowID int) ([]model.BorrowHistory, error)
}

type ReviewService interface {
	CreateReview(ctx context.Context, userID, bookID int, req model.CreateReviewRequest) (model.Review, error)
	CanReview(ctx context.Context, userID, bookID int) (bool, error)
	UpdateReview(ctx context.Context, userID, reviewID int, req model.UpdateReviewRequest) (model.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID int) error
	ListBookReviews(ctx context.Context, bookID int) ([]model.Review, error)
}

var (
	_ AuthService   = (*service.Service)(nil)
	_ BookService   = (*service.Service)(nil)
	_ BorrowService = (*service.Service)(nil)
	_ ReviewService = (*service.Service)(nil)
)
