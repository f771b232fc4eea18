package user

import "github.com/pkg/errors"

// SeedAccount is one out-of-band provisioned account. Any credential source
// can supply these; DefaultAccounts is the built-in demo roster.
type SeedAccount struct {
	Username    string
	Name        string
	Email       string
	Role        string
	Password    string
	Permissions []string
	Phone       string
	Department  string
	Class       string
}

func DefaultAccounts() []SeedAccount {
	return []SeedAccount{
		{
			Username: "admin001",
			Name:     "Abdullah Al-Mahmud",
			Email:    "admin@madrasa.local",
			Role:     RoleAdmin,
			Password: "password123",
		},
		{
			Username:    "teacher001",
			Name:        "Ustadh Kamal Hossain",
			Email:       "kamal@madrasa.local",
			Role:        RoleTeacher,
			Password:    "password123",
			Department:  "Hifz",
			Permissions: []string{"view_students", "edit_marks", "view_marks", "post_notices"},
		},
		{
			Username:    "student001",
			Name:        "Rafiq Islam",
			Email:       "rafiq@madrasa.local",
			Role:        RoleStudent,
			Password:    "password123",
			Class:       "Alim 1st Year",
			Permissions: []string{"view_marks", "view_notices"},
		},
		{
			Username:    "parent001",
			Name:        "Mahbub Rahman",
			Email:       "mahbub@madrasa.local",
			Role:        RoleParent,
			Password:    "password123",
			Permissions: []string{"view_marks", "view_notices", "view_fees"},
		},
	}
}

// Seed provisions the given accounts, skipping usernames that already exist.
func Seed(svc *Service, accounts []SeedAccount) error {
	for _, acc := range accounts {
		if _, err := svc.GetByUsername(acc.Username); err == nil {
			continue
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "checking seed account "+acc.Username)
		}
		nu := NewUser{
			Name:            acc.Name,
			Username:        acc.Username,
			Email:           acc.Email,
			Role:            acc.Role,
			Password:        acc.Password,
			PasswordConfirm: acc.Password,
			Permissions:     acc.Permissions,
			Phone:           acc.Phone,
			Department:      acc.Department,
			Class:           acc.Class,
		}
		if _, err := svc.Create(nu); err != nil {
			return errors.Wrap(err, "creating seed account "+acc.Username)
		}
	}
	return nil
}
