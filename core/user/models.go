package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/locateme/backend/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleDoctor  = "doctor" // course instructor
)

var AllRoles = []string{RoleStudent, RoleDoctor}

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	StudentID    string    `json:"student_id"` // campus number, also set for doctors
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"-"` // UTC
	UpdatedAt    time.Time `json:"-"` // UTC
	LastLogin    time.Time `json:"-"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsDoctor() bool  { return u.Role == RoleDoctor }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	StudentID string `json:"student_id" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=100"`
	Role      string `json:"role" validate:"required,userrole"`
}

func (nu *NewUser) Clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.StudentID = core.CleanString(nu.StudentID)
	nu.Name = core.CleanString(nu.Name)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, translator ut.Translator, svc Service) error {
	nu.Clean()
	InitValidators(validate, translator)
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email, nu.StudentID)
}

// GetFilter selects a single User. Non-zero fields are ANDed.
type GetFilter struct {
	ID        int
	Email     string
	StudentID string
	Role      string
}
