package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the three-tier authorization level attached to every user.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleModerator Role = "Moderator"
	RoleUser      Role = "User"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Gender mirrors the stored enum.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// DefaultAvatar is assigned on create when no image is uploaded.
const DefaultAvatar = "/assets/images/avatar.png"

// User represents the core user entity.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never exposed in any payload.
	Mobile       string    `json:"mobile"`
	Gender       Gender    `json:"gender"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the point-in-time snapshot of a caller embedded in a session
// token. It may diverge from the persisted record over a token's lifetime.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	IsActive bool      `json:"isActive"`
}

// CreateUserParams carries validated input for the add-user operation.
type CreateUserParams struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
	Mobile   string `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Gender   Gender `json:"gender" validate:"required,oneof=M F O"`
}

// UpdateUserParams carries validated input for the update operation.
// The password is never mutated through this path.
type UpdateUserParams struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Mobile string `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Gender Gender `json:"gender" validate:"required,oneof=M F O"`
	// Image is set by the handler when an avatar was uploaded; empty keeps
	// the target's current image.
	Image string `json:"-"`
}

// ListUsersParams carries the filter/sort/pagination inputs of the listing
// operation. Filters holds arbitrary field=value equality filters taken from
// the query string after reserved keys are stripped.
type ListUsersParams struct {
	Key     string
	Filters map[string]string
	Sort    []string
	Page    int
	Limit   int
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserResponse wraps a single user record.
type UserResponse struct {
	Response
	User *User `json:"user"`
}

// ListResponse wraps a page of user records.
type ListResponse struct {
	Response
	Count int    `json:"count"`
	Users []User `json:"users"`
}
