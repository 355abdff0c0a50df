package inmemdb

import (
	"context"
	"sort"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) exists(email, studentID string) bool {
	for _, usr := range repo.db.users {
		if (email != "" && usr.Email == email) || (studentID != "" && usr.StudentID == studentID) {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, studentID string, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if repo.exists(email, studentID) {
		return user.ErrUserExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.exists(usr.Email, usr.StudentID) {
		return user.User{}, user.ErrUserExists
	}
	repo.db.usersSeq++
	usr.ID = repo.db.usersSeq
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if filter.ID != 0 && usr.ID != filter.ID {
			continue
		}
		if filter.Email != "" && usr.Email != filter.Email {
			continue
		}
		if filter.StudentID != "" && usr.StudentID != filter.StudentID {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids []int, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok && !seen[id] {
			users = append(users, usr)
			seen[id] = true
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) CountUsers(context.Context, ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.users), nil
}
