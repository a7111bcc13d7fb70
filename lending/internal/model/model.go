package model

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID   int  `json:"user_id"`
	Role     Role `json:"role"`
	IsActive bool `json:"is_active"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"page_size"`
	TotalElements int `json:"total_elements"`
}
