package user

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/store"
	"github.com/madrasa-app/madrasa/storage"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

// Slot is the storage slot holding the account collection.
const Slot = "users"

type Repository interface {
	CheckUsernameUniqueness(username string, excludedUsers ...User) error
	CreateUser(usr User) (User, error)
	QueryAllUsers() ([]User, error)
	GetUserByID(id string) (User, error)
	GetUserByUsername(username string) (User, error)
	GetUserByUsernameAndRole(username, role string) (User, error)
	UpdateUser(usr User) (User, error)
	DeleteUsersByID(ids ...string) error
}

// storeRepository persists accounts through a keyed store over the users slot.
type storeRepository struct {
	users *store.Store[User]
}

var _ Repository = (*storeRepository)(nil)

func NewStoreRepository(backend storage.Backend, log core.Logger) Repository {
	return &storeRepository{users: store.New[User](Slot, backend, log)}
}

func (repo *storeRepository) CheckUsernameUniqueness(username string, excludedUsers ...User) error {
	matches := repo.users.Search(func(u User) bool { return u.Username == username })
	for _, usr := range matches {
		if !isExcluded(usr, excludedUsers) {
			return ErrUsernameExists
		}
	}
	return nil
}

func (repo *storeRepository) CreateUser(usr User) (User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if err := repo.CheckUsernameUniqueness(usr.Username); err != nil {
		return User{}, err
	}
	if !repo.users.Add(usr) {
		return User{}, errors.New("persisting user")
	}
	return usr, nil
}

func (repo *storeRepository) QueryAllUsers() ([]User, error) {
	return repo.users.GetAll(), nil
}

func (repo *storeRepository) GetUserByID(id string) (User, error) {
	if usr, ok := repo.users.GetByID(id); ok {
		return usr, nil
	}
	return User{}, ErrNotFound
}

func (repo *storeRepository) GetUserByUsername(username string) (User, error) {
	return repo.first(func(u User) bool { return u.Username == username })
}

func (repo *storeRepository) GetUserByUsernameAndRole(username, role string) (User, error) {
	return repo.first(func(u User) bool { return u.Username == username && u.Role == role })
}

func (repo *storeRepository) UpdateUser(usr User) (User, error) {
	if ok := repo.users.Update(usr.ID, func(User) User { return usr }); !ok {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (repo *storeRepository) DeleteUsersByID(ids ...string) error {
	for _, id := range ids {
		if !repo.users.Delete(id) {
			return errors.New("deleting user " + id)
		}
	}
	return nil
}

func (repo *storeRepository) first(pred func(User) bool) (User, error) {
	if matches := repo.users.Search(pred); len(matches) > 0 {
		return matches[0], nil
	}
	return User{}, ErrNotFound
}

func isExcluded(usr User, excludedUsers []User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}
