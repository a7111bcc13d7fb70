package model

import "time"

type Status string

const (
	StatusPending  Status = "menunggu"
	StatusBorrowed Status = "dipinjam"
	StatusReturned Status = "dikembalikan"
	StatusDeclined Status = "ditolak"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusBorrowed, StatusReturned, StatusDeclined:
		return true
	}
	return false
}

// Active statuses block a new request by the same user.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusBorrowed
}

type Borrow struct {
	ID         int        `json:"id" db:"id"`
	BookID     int        `json:"book_id" db:"book_id"`
	UserID     int        `json:"user_id" db:"user_id"`
	Status     Status     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	BorrowDate *time.Time `json:"borrow_date" db:"borrow_date"`
	ReturnDate *time.Time `json:"return_date" db:"return_date"`
}

type BorrowDetail struct {
	Borrow
	Book BookSummary  `json:"book"`
	User *UserSummary `json:"user,omitempty"`
}

type BorrowHistory struct {
	ID         int       `json:"id"`
	BorrowID   int       `json:"borrow_id"`
	FromStatus *Status   `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    int       `json:"actor_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// BorrowEvent is published after a status change is committed.
type BorrowEvent struct {
	MessageID  string    `json:"message_id"`
	BorrowID   int       `json:"borrow_id"`
	BookID     int       `json:"book_id"`
	UserID     int       `json:"user_id"`
	ActorID    int       `json:"actor_id"`
	From       *Status   `json:"from"`
	To         Status    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CreateBorrowRequest struct {
	BookID int `json:"book_id" validate:"required,gt=0"`
}

type AdminUpdateBorrowRequest struct {
	Status     Status     `json:"status" validate:"required,oneof=dipinjam dikembalikan ditolak"`
	ReturnDate *time.Time `json:"return_date"`
}
