package errs

import (
	"errors"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvariant:
		return "invariant_violation"
	}
	return "internal"
}

// Error is an expected business outcome. Sentinels are compared with errors.Is.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// KindOf returns KindInternal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	ErrUserHasActiveBorrow = New(KindConflict, "user_has_active_borrow", "user already has an active borrow")
	ErrBookNotFound        = New(KindNotFound, "book_not_found", "book not found")
	ErrBookNotAvailable    = New(KindConflict, "book_not_available", "book not available")
	ErrInsufficientStock   = New(KindConflict, "insufficient_stock", "insufficient stock")
	ErrBorrowNotFound      = New(KindNotFound, "borrow_not_found", "borrow not found")
	ErrInvalidTransition   = New(KindConflict, "invalid_transition", "invalid status transition")
	ErrBookTitleTaken      = New(KindConflict, "book_title_taken", "book with this title already exists")
	ErrInvalidAmount       = New(KindValidation, "invalid_amount", "amount must not be negative")
	ErrInvalidDate         = New(KindValidation, "invalid_date", "date must be formatted as YYYY-MM-DD")

	ErrInvalidScore     = New(KindValidation, "invalid_score", "score must be between 1 and 5")
	ErrAlreadyReviewed  = New(KindConflict, "already_reviewed", "book already reviewed")
	ErrReviewNotAllowed = New(KindForbidden, "review_not_allowed", "book must be borrowed and returned before review")
	ErrReviewNotFound   = New(KindNotFound, "review_not_found", "review not found")
	ErrNotOwner         = New(KindForbidden, "forbidden", "not enough permissions")

	ErrLastAdmin          = New(KindInvariant, "last_admin_protection", "at least one active admin is required")
	ErrUserNotFound       = New(KindNotFound, "user_not_found", "user not found")
	ErrEmailTaken         = New(KindConflict, "email_taken", "email already registered")
	ErrInvalidCredentials = New(KindUnauthorized, "invalid_credentials", "incorrect email or password")
	ErrInactiveUser       = New(KindUnauthorized, "inactive_user", "inactive user")
	ErrUnauthenticated    = New(KindUnauthorized, "invalid_token", "could not validate credentials")
	ErrAdminRequired      = New(KindForbidden, "admin_required", "admin role required")
	ErrInvalidRole        = New(KindValidation, "invalid_role", "unknown role")
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
