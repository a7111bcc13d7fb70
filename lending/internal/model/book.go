package model

import "time"

type Book struct {
	ID            int        `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Publisher     string     `json:"publisher" db:"publisher"`
	PublishedDate *time.Time `json:"published_date" db:"published_date"`
	Rating        *float64   `json:"rating" db:"rating"`
	Amount        int        `json:"amount" db:"amount"`
	IsDeleted     bool       `json:"-" db:"is_deleted"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type BookSummary struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type BookDetail struct {
	Book
	Reviews []Review `json:"reviews"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type CreateBookRequest struct {
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description" validate:"max=4000"`
	Publisher     string `json:"publisher" validate:"max=255"`
	PublishedDate string `json:"published_date" validate:"omitempty,datetime=2006-01-02"`
	Amount        int    `json:"amount" validate:"gte=0"`
}

type UpdateBookRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string `json:"description" validate:"omitempty,max=4000"`
	Publisher     *string `json:"publisher" validate:"omitempty,max=255"`
	PublishedDate *string `json:"published_date" validate:"omitempty,datetime=2006-01-02"`
	Amount        *int    `json:"amount" validate:"omitempty,gte=0"`
}
