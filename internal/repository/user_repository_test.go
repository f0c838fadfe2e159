package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/smartplate/smartplate/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var userCols = []string{"id", "email", "name", "picture", "password_hash", "role", "phone_verified", "is_verified", "created_at"}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users ("+userColumns+")")).
		WithArgs("u1", "alice@x.com", "Alice", nil, "$2a$hash", nil, false, false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), model.User{
		ID: "u1", Email: "alice@x.com", Name: "Alice", PasswordHash: "$2a$hash", CreatedAt: now,
	})
	require.NoError(t, err)
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), model.User{ID: "u2", Email: "alice@x.com"})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("bob@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u3", "bob@x.com", nil, "https://pic", nil, "ngo", false, true, now))

	u, err := repo.GetByEmail(context.Background(), "bob@x.com")
	require.NoError(t, err)
	require.Equal(t, "u3", u.ID)
	require.Equal(t, model.RoleNGO, u.Role)
	require.True(t, u.IsVerified)
	require.Equal(t, "https://pic", u.Picture)
	require.False(t, u.HasPassword())
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_SetRoleIfUnset(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=? AND role IS NULL")).
		WithArgs("donor", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetRoleIfUnset(context.Background(), "u1", model.RoleDonor))
}

func TestUserRepo_SetRoleIfUnset_AlreadySet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=? AND role IS NULL")).
		WithArgs("ngo", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "a@x.com", nil, nil, nil, "donor", false, false, time.Now()))

	err := repo.SetRoleIfUnset(context.Background(), "u1", model.RoleNGO)
	require.ErrorIs(t, err, ErrRoleAlreadySet)
}

func TestUserRepo_SetRoleIfUnset_UserGone(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WillReturnRows(sqlmock.NewRows(userCols))

	err := repo.SetRoleIfUnset(context.Background(), "gone", model.RoleNGO)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_MarkVerified(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_verified=1 WHERE id=?")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_verified=1 WHERE id=?")).
		WithArgs("nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkVerified(context.Background(), "u1"))
	require.ErrorIs(t, repo.MarkVerified(context.Background(), "nobody"), ErrNotFound)
}

func TestUserRepo_PromoteToAdmin(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=?, is_verified=1 WHERE email=?")).
		WithArgs("admin", "root@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.PromoteToAdmin(context.Background(), "root@x.com"))
}

func TestUserRepo_Count(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(7)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
}
