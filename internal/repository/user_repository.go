package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/smartplate/smartplate/internal/model"
)

const userColumns = "id,email,name,picture,password_hash,role,phone_verified,is_verified,created_at"

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u. The caller assigns ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, nullString(u.Name), nullString(u.Picture), nullString(u.PasswordHash),
		nullString(string(u.Role)), u.PhoneVerified, u.IsVerified, u.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// SetRoleIfUnset stores role only while the current role is NULL. The check
// and the write are one statement, so of several concurrent callers exactly
// one succeeds and the rest get ErrRoleAlreadySet.
func (r *UserRepo) SetRoleIfUnset(ctx context.Context, id string, role model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE id=? AND role IS NULL", string(role), id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrRoleAlreadySet
}

// MarkVerified sets is_verified on the user.
func (r *UserRepo) MarkVerified(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_verified=1 WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PromoteToAdmin turns an existing account into a verified admin. It is
// used only by the provisioning command.
func (r *UserRepo) PromoteToAdmin(ctx context.Context, email string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=?, is_verified=1 WHERE email=?", string(model.RoleAdmin), email)
	if err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.DB, "users")
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u                         model.User
		name, picture, hash, role sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &name, &picture, &hash, &role,
		&u.PhoneVerified, &u.IsVerified, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Name = name.String
	u.Picture = picture.String
	u.PasswordHash = hash.String
	u.Role = model.Role(role.String)
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// count runs SELECT COUNT(*) on one of the fixed table names above.
func count(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
