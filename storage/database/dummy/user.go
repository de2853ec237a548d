package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mahimaacademy/academy/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) emailTaken(email string, excludedIDs ...string) bool {
	for _, usr := range repo.db.tables.users {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	defer repo.db.lock(ctx)()
	if repo.emailTaken(email, excludedIDs...) {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()
	if repo.emailTaken(usr.Email) {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = uuid.New().String()
	repo.db.tables.users[usr.ID] = usr
	repo.db.tables.inserted(usr.ID)
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	defer repo.db.lock(ctx)()
	if usr, ok := repo.db.tables.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	defer repo.db.lock(ctx)()
	for _, usr := range repo.db.tables.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter) ([]user.User, error) {
	defer repo.db.lock(ctx)()

	users := make([]user.User, 0, len(repo.db.tables.users))
	for _, usr := range repo.db.tables.users {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, usr)
	}
	order := repo.db.tables.order
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return order[users[i].ID] > order[users[j].ID]
	})
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), search) && !strings.Contains(strings.ToLower(usr.Email), search) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.tables.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	repo.db.tables.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) CountUsers(ctx context.Context, rolePrefix string) (int, error) {
	defer repo.db.lock(ctx)()
	if rolePrefix == "" {
		return len(repo.db.tables.users), nil
	}
	var n int
	for _, usr := range repo.db.tables.users {
		if usr.RoleStartsWith(rolePrefix) {
			n++
		}
	}
	return n, nil
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}
