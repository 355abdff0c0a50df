package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/user"
)

const userTable = `"user"`

var userColumns = []string{"id", "email", "student_id", "name", "role", "password_hash", "created_at", "updated_at", "last_login"}

type userRow struct {
	ID           int       `db:"id"`
	Email        string    `db:"email"`
	StudentID    string    `db:"student_id"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		StudentID:    usr.StudentID,
		Name:         usr.Name,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		StudentID:    row.StudentID,
		Name:         row.Name,
		Role:         row.Role,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, email, studentID string, exec ...core.DBExecutor) error {
	query, args, err := psql.Select("1").
		From(userTable).
		Where(sq.Or{sq.Eq{"email": email}, sq.Eq{"student_id": studentID}}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var exists bool
	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	query, args, err := psql.Insert(userTable).
		Columns("email", "student_id", "name", "role", "password_hash", "created_at", "updated_at", "last_login").
		Values(row.Email, row.StudentID, row.Name, row.Role, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &row.ID, query, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	where := sq.Eq{}
	if filter.ID != 0 {
		where["id"] = filter.ID
	}
	if filter.Email != "" {
		where["email"] = filter.Email
	}
	if filter.StudentID != "" {
		where["student_id"] = filter.StudentID
	}
	if filter.Role != "" {
		where["role"] = filter.Role
	}
	if len(where) == 0 {
		return user.User{}, user.ErrNotFound
	}

	query, args, err := psql.Select(userColumns...).From(userTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsersByID(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query, args, err := psql.Select(userColumns...).From(userTable).Where(sq.Eq{"id": ids}).OrderBy("id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []userRow
	if err = sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	query, args, err := psql.Update(userTable).
		SetMap(map[string]interface{}{
			"email":         row.Email,
			"student_id":    row.StudentID,
			"name":          row.Name,
			"role":          row.Role,
			"password_hash": row.PasswordHash,
			"updated_at":    row.UpdatedAt,
			"last_login":    row.LastLogin,
		}).
		Where(sq.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) CountUsers(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	return count(ctx, getExec(repo.exec, exec), userTable)
}

func count(ctx context.Context, exec core.DBExecutor, table string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var n int
	if err = sqlx.GetContext(ctx, exec, &n, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting "+table)
	}
	return n, nil
}
