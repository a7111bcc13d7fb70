package model

import "time"

const (
	MinScore = 1.0
	MaxScore = 5.0
)

type Review struct {
	ID        int       `json:"id" db:"id"`
	BookID    int       `json:"book_id" db:"book_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Score     float64   `json:"score" db:"score"`
	Content   *string   `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ReviewEligibility struct {
	BookID    int  `json:"book_id"`
	CanReview bool `json:"can_review"`
}

type CreateReviewRequest struct {
	Score   float64 `json:"score" validate:"required,gte=1,lte=5"`
	Content *string `json:"content" validate:"omitempty,max=2000"`
}

type UpdateReviewRequest struct {
	Score   *float64 `json:"score" validate:"omitempty,gte=1,lte=5"`
	Content *string  `json:"content" validate:"omitempty,max=2000"`
}
