package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/madrasa-app/madrasa/core"
)

// Roles form a closed set; every account carries exactly one.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
	RoleParent  = "parent"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin, RoleParent}

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`

	// optional profile fields
	Phone        string `json:"phone,omitempty"`
	Department   string `json:"department,omitempty"`
	Class        string `json:"class,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`

	// PasswordHash round-trips through the persisted slot; API responses
	// must go through Public() so it never leaves the process.
	PasswordHash []byte `json:"password_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login,omitempty"`
}

// Key implements store.Keyed.
func (u User) Key() string { return u.ID }

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

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPermission reports whether the account may perform the named action.
// Admins may perform everything.
func (u User) HasPermission(perm string) bool {
	if u.IsAdmin() {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Public returns a copy safe to serialize in API responses.
func (u User) Public() User {
	u.PasswordHash = nil
	return u
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"required,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Role            string   `json:"role" validate:"required,oneof=student teacher admin parent"`
	Password        string   `json:"password" validate:"required,min=6"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Permissions     []string `json:"permissions"`
	Phone           string   `json:"phone"`
	Department      string   `json:"department"`
	Class           string   `json:"class"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Permissions     []string `json:"permissions"`
	Password        string   `json:"password" validate:"omitempty,min=6"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	Phone           string   `json:"phone"`
	Department      string   `json:"department"`
	Class           string   `json:"class"`
	ProfileImage    string   `json:"profile_image"`
}

func (uu *UpdateUser) Validate() error {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	return core.Validate.Struct(uu)
}
