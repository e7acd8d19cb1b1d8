package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

// CreateUser creates a new operator account.
func CreateUser(ctx context.Context, q db.DBTX, username, passwordHash, role string) (*model.User, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID, or nil if it does not exist.
func GetUser(ctx context.Context, q db.DBTX, id int64) (*model.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
}

// GetActiveUserByUsername returns the non-deleted user with the given name.
func GetActiveUserByUsername(ctx context.Context, q db.DBTX, username string) (*model.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q db.DBTX) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountAdmins returns the number of active admin accounts.
func CountAdmins(ctx context.Context, q db.DBTX) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND deleted_at IS NULL`, model.RoleAdmin,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}

// UpdateUserRole updates a user's role.
func UpdateUserRole(ctx context.Context, q db.DBTX, id int64, role string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q db.DBTX, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user so the username can be reused.
func DeleteUser(ctx context.Context, q db.DBTX, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ChangeUserRole updates a user's role inside a transaction. The last
// active admin cannot be demoted.
func ChangeUserRole(ctx context.Context, conn *sql.DB, id int64, role string) (*model.User, error) {
	var user *model.User
	err := db.RunInTx(ctx, conn, func(ctx context.Context, tx db.DBTX) error {
		u, err := activeUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.Role == model.RoleAdmin && role != model.RoleAdmin {
			if err := ensureOtherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := UpdateUserRole(ctx, tx, id, role); err != nil {
			return err
		}
		user, err = GetUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RemoveUser soft-deletes a user inside a transaction and returns it. The
// last active admin cannot be removed.
func RemoveUser(ctx context.Context, conn *sql.DB, id int64) (*model.User, error) {
	var user *model.User
	err := db.RunInTx(ctx, conn, func(ctx context.Context, tx db.DBTX) error {
		u, err := activeUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.Role == model.RoleAdmin {
			if err := ensureOtherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		user = u
		return DeleteUser(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func activeUser(ctx context.Context, q db.DBTX, id int64) (*model.User, error) {
	u, err := GetUser(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, &model.NotFoundError{Entity: "user", ID: id}
	}
	return u, nil
}

func ensureOtherAdmin(ctx context.Context, q db.DBTX) error {
	admins, err := CountAdmins(ctx, q)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return model.NewValidationError("role", "cannot remove the last admin")
	}
	return nil
}
