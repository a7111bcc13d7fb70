package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/repository"
)

// memRepo keeps the store in maps. Transact runs on a copy that replaces the
// state only on success, and holds a mutex for its whole duration.
type memRepo struct {
	*memUoW
	mu sync.Mutex
}

var _ repository.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{memUoW: &memUoW{st: &memState{
		books:   map[int]model.Book{},
		borrows: map[int]model.Borrow{},
		reviews: map[int]model.Review{},
		users:   map[int]model.User{},
		deleted: map[int]bool{},
	}, fail: map[string]error{}}}
}

func (r *memRepo) Transact(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memUoW{st: r.st.clone(), fail: r.fail}
	if err := fn(tx); err != nil {
		return err
	}
	r.st = tx.st
	return nil
}

type memState struct {
	seq     int
	books   map[int]model.Book
	borrows map[int]model.Borrow
	history []model.BorrowHistory
	reviews map[int]model.Review
	users   map[int]model.User
	deleted map[int]bool
}

func (s *memState) clone() *memState {
	c := &memState{
		seq:     s.seq,
		books:   make(map[int]model.Book, len(s.books)),
		borrows: make(map[int]model.Borrow, len(s.borrows)),
		history: append([]model.BorrowHistory(nil), s.history...),
		reviews: make(map[int]model.Review, len(s.reviews)),
		users:   make(map[int]model.User, len(s.users)),
		deleted: make(map[int]bool, len(s.deleted)),
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.borrows {
		c.borrows[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.deleted {
		c.deleted[k] = v
	}
	return c
}

func (s *memState) next() int {
	s.seq++
	return s.seq
}

type memUoW struct {
	st   *memState
	fail map[string]error
}

func (u *memUoW) Reserve(_ context.Context, bookID int) error {
	b, ok := u.st.books[bookID]
	if !ok || b.IsDeleted || b.Amount <= 0 {
		return errs.ErrInsufficientStock
	}
	b.Amount--
	u.st.books[bookID] = b
	return nil
}

func (u *memUoW) Release(_ context.Context, bookID int) error {
	b, ok := u.st.books[bookID]
	if !ok {
		return errs.ErrBookNotFound
	}
	b.Amount++
	u.st.books[bookID] = b
	return nil
}

func (u *memUoW) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	for _, b := range u.st.books {
		if !b.IsDeleted && b.Title == book.Title {
			return model.Book{}, errs.ErrBookTitleTaken
		}
	}
	book.ID = u.st.next()
	book.CreatedAt = time.Now()
	u.st.books[book.ID] = book
	return book, nil
}

func (u *memUoW) GetBook(_ context.Context, id int) (model.Book, error) {
	b, ok := u.st.books[id]
	if !ok || b.IsDeleted {
		return model.Book{}, errs.ErrBookNotFound
	}
	return b, nil
}

func (u *memUoW) LockBook(ctx context.Context, id int) (model.Book, error) {
	return u.GetBook(ctx, id)
}

func (u *memUoW) ListBooks(_ context.Context, page, size int) (model.ListBooks, error) {
	var items []model.Book
	for _, b := range u.st.books {
		if !b.IsDeleted {
			items = append(items, b)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	total := len(items)
	if page > 0 && size > 0 {
		from := (page - 1) * size
		if from > len(items) {
			from = len(items)
		}
		to := from + size
		if to > len(items) {
			to = len(items)
		}
		items = items[from:to]
	}
	return model.ListBooks{
		Paging: model.Paging{Page: page, PageSize: size, TotalElements: total},
		Items:  items,
	}, nil
}

func (u *memUoW) UpdateBook(_ context.Context, book model.Book) (model.Book, error) {
	if _, ok := u.st.books[book.ID]; !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	u.st.books[book.ID] = book
	return book, nil
}

func (u *memUoW) DeleteBook(_ context.Context, id int) error {
	b, ok := u.st.books[id]
	if !ok || b.IsDeleted {
		return errs.ErrBookNotFound
	}
	b.IsDeleted = true
	u.st.books[id] = b
	return nil
}

func (u *memUoW) RefreshBookRating(_ context.Context, bookID int) error {
	var sum float64
	var n int
	for _, r := range u.st.reviews {
		if r.BookID == bookID {
			sum += r.Score
			n++
		}
	}
	b := u.st.books[bookID]
	b.Rating = nil
	if n > 0 {
		avg := sum / float64(n)
		b.Rating = &avg
	}
	u.st.books[bookID] = b
	return nil
}

func (u *memUoW) CreateBorrow(_ context.Context, bookID, userID int) (model.Borrow, error) {
	if _, ok := u.st.books[bookID]; !ok {
		return model.Borrow{}, errs.ErrBookNotFound
	}
	for _, b := range u.st.borrows {
		if b.UserID == userID && b.Status.Active() {
			return model.Borrow{}, errs.ErrUserHasActiveBorrow
		}
	}
	b := model.Borrow{
		ID:        u.st.next(),
		BookID:    bookID,
		UserID:    userID,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}
	u.st.borrows[b.ID] = b
	return b, nil
}

func (u *memUoW) GetBorrow(_ context.Context, id int) (model.Borrow, error) {
	b, ok := u.st.borrows[id]
	if !ok {
		return model.Borrow{}, errs.ErrBorrowNotFound
	}
	return b, nil
}

func (u *memUoW) LockBorrow(ctx context.Context, id int) (model.Borrow, error) {
	return u.GetBorrow(ctx, id)
}

func (u *memUoW) LatestBorrow(_ context.Context, userID int) (model.Borrow, bool, error) {
	var (
		latest model.Borrow
		found  bool
	)
	for _, b := range u.st.borrows {
		if b.UserID == userID && b.ID > latest.ID {
			latest, found = b, true
		}
	}
	return latest, found, nil
}

func (u *memUoW) UpdateBorrow(_ context.Context, borrow model.Borrow) (model.Borrow, error) {
	if err := u.fail["UpdateBorrow"]; err != nil {
		return model.Borrow{}, err
	}
	if _, ok := u.st.borrows[borrow.ID]; !ok {
		return model.Borrow{}, errs.ErrBorrowNotFound
	}
	u.st.borrows[borrow.ID] = borrow
	return borrow, nil
}

func (u *memUoW) details(filter func(model.Borrow) bool, withUser bool) []model.BorrowDetail {
	var items []model.BorrowDetail
	for _, b := range u.st.borrows {
		if !filter(b) {
			continue
		}
		d := model.BorrowDetail{
			Borrow: b,
			Book:   model.BookSummary{ID: b.BookID, Title: u.st.books[b.BookID].Title},
		}
		if withUser {
			usr := u.st.users[b.UserID]
			d.User = &model.UserSummary{ID: usr.ID, Email: usr.Email, FullName: usr.FullName}
		}
		items = append(items, d)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items
}

func (u *memUoW) ListUserBorrows(_ context.Context, userID int) ([]model.BorrowDetail, error) {
	return u.details(func(b model.Borrow) bool { return b.UserID == userID }, false), nil
}

func (u *memUoW) ListAllBorrows(_ context.Context) ([]model.BorrowDetail, error) {
	return u.details(func(model.Borrow) bool { return true }, true), nil
}

func (u *memUoW) HasReturnedBorrow(_ context.Context, userID, bookID int) (bool, error) {
	for _, b := range u.st.borrows {
		if b.UserID == userID && b.BookID == bookID && b.Status == model.StatusReturned {
			return true, nil
		}
	}
	return false, nil
}

func (u *memUoW) AddBorrowHistory(_ context.Context, h model.BorrowHistory) error {
	if err := u.fail["AddBorrowHistory"]; err != nil {
		return err
	}
	h.ID = u.st.next()
	h.CreatedAt = time.Now()
	u.st.history = append(u.st.history, h)
	return nil
}

func (u *memUoW) ListBorrowHistory(_ context.Context, borrowID int) ([]model.BorrowHistory, error) {
	var items []model.BorrowHistory
	for _, h := range u.st.history {
		if h.BorrowID == borrowID {
			items = append(items, h)
		}
	}
	return items, nil
}

func (u *memUoW) CreateReview(_ context.Context, review model.Review) (model.Review, error) {
	for _, r := range u.st.reviews {
		if r.UserID == review.UserID && r.BookID == review.BookID {
			return model.Review{}, errs.ErrAlreadyReviewed
		}
	}
	review.ID = u.st.next()
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	u.st.reviews[review.ID] = review
	return review, nil
}

func (u *memUoW) GetReview(_ context.Context, id int) (model.Review, error) {
	r, ok := u.st.reviews[id]
	if !ok {
		return model.Review{}, errs.ErrReviewNotFound
	}
	return r, nil
}

func (u *memUoW) HasReview(_ context.Context, userID, bookID int) (bool, error) {
	for _, r := range u.st.reviews {
		if r.UserID == userID && r.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (u *memUoW) UpdateReview(_ context.Context, review model.Review) (model.Review, error) {
	if _, ok := u.st.reviews[review.ID]; !ok {
		return model.Review{}, errs.ErrReviewNotFound
	}
	review.UpdatedAt = time.Now()
	u.st.reviews[review.ID] = review
	return review, nil
}

func (u *memUoW) DeleteReview(_ context.Context, id int) error {
	if _, ok := u.st.reviews[id]; !ok {
		return errs.ErrReviewNotFound
	}
	delete(u.st.reviews, id)
	return nil
}

func (u *memUoW) ListBookReviews(_ context.Context, bookID int) ([]model.Review, error) {
	var items []model.Review
	for _, r := range u.st.reviews {
		if r.BookID == bookID {
			items = append(items, r)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (u *memUoW) CreateUser(_ context.Context, user model.User) (model.User, error) {
	for id, usr := range u.st.users {
		if !u.st.deleted[id] && strings.EqualFold(usr.Email, user.Email) {
			return model.User{}, errs.ErrEmailTaken
		}
	}
	user.ID = u.st.next()
	user.CreatedAt = time.Now()
	u.st.users[user.ID] = user
	return user, nil
}

func (u *memUoW) GetUser(_ context.Context, id int) (model.User, error) {
	usr, ok := u.st.users[id]
	if !ok || u.st.deleted[id] {
		return model.User{}, errs.ErrUserNotFound
	}
	return usr, nil
}

func (u *memUoW) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	if err := u.fail["GetUserByEmail"]; err != nil {
		return model.User{}, err
	}
	for id, usr := range u.st.users {
		if !u.st.deleted[id] && strings.EqualFold(usr.Email, email) {
			return usr, nil
		}
	}
	return model.User{}, errs.ErrUserNotFound
}

func (u *memUoW) LockUser(ctx context.Context, id int) (model.User, error) {
	return u.GetUser(ctx, id)
}

func (u *memUoW) ListUsers(_ context.Context) ([]model.User, error) {
	var items []model.User
	for id, usr := range u.st.users {
		if !u.st.deleted[id] {
			items = append(items, usr)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (u *memUoW) UpdateUser(_ context.Context, user model.User) (model.User, error) {
	if _, ok := u.st.users[user.ID]; !ok || u.st.deleted[user.ID] {
		return model.User{}, errs.ErrUserNotFound
	}
	u.st.users[user.ID] = user
	return user, nil
}

func (u *memUoW) DeleteUser(_ context.Context, id int) error {
	usr, ok := u.st.users[id]
	if !ok || u.st.deleted[id] {
		return errs.ErrUserNotFound
	}
	usr.IsActive = false
	u.st.users[id] = usr
	u.st.deleted[id] = true
	return nil
}

func (u *memUoW) LockActiveAdmins(_ context.Context) ([]int, error) {
	var ids []int
	for id, usr := range u.st.users {
		if !u.st.deleted[id] && usr.IsActiveAdmin() {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
