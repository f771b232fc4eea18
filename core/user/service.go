package user

import (
	"time"

	"github.com/madrasa-app/madrasa/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(uname string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, exclUsers...); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:        nu.Name,
		Username:    nu.Username,
		Email:       nu.Email,
		Role:        nu.Role,
		Permissions: nu.Permissions,
		Phone:       nu.Phone,
		Department:  nu.Department,
		Class:       nu.Class,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByUsernameAndRole(uname, role string) (User, error) {
	return svc.repo.GetUserByUsernameAndRole(core.CleanString(uname, true /* lower */), role)
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Permissions != nil {
		usr.Permissions = uu.Permissions
	}
	if uu.Phone != "" {
		usr.Phone = uu.Phone
	}
	if uu.Department != "" {
		usr.Department = uu.Department
	}
	if uu.Class != "" {
		usr.Class = uu.Class
	}
	if uu.ProfileImage != "" {
		usr.ProfileImage = uu.ProfileImage
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

// Save persists a fully-populated account as-is.
func (svc *Service) Save(usr User) (User, error) {
	return svc.repo.UpdateUser(usr)
}

// SetLastLogin stamps a successful authentication on the account.
func (svc *Service) SetLastLogin(usr User, at time.Time) (User, error) {
	usr.LastLogin = at.UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteUsersByID(ids...)
}
