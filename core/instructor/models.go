package instructor

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mwalimu/core"
)

const defaultBio = "New Instructor"

// Instructor is the course owner record tied to an external session user.
// Invited instructors have no UserID until they first sign in.
type Instructor struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	Bio       string    `json:"bio" db:"bio"`
	InvitedBy string    `json:"invited_by,omitempty" db:"invited_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (i Instructor) IsPending() bool { return i.UserID == "" }

// Invitation contains the information needed to invite a new Instructor.
type Invitation struct {
	Email string `json:"email" validate:"required,email"`
}

func (inv *Invitation) Validate(validate *validator.Validate) error {
	inv.Email = core.CleanString(inv.Email, true /* lower */)
	return validate.Struct(inv)
}

type inviteData struct {
	Email     string
	InvitedBy string
}
