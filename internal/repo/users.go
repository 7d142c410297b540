package repo

import (
	"context"
	"database/sql"
	"strings"

	"taskboard/internal/domain"
)

const userColumns = `id,name,email,role,status,created_at,updated_at,version`

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID.String(), u.Name, u.Email.String(), string(u.Role), string(u.Status),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt), 1)
	return err
}

// UpdateUser enforces optimistic concurrency: the row must still carry the
// version the aggregate was loaded with.
func (r Repo) UpdateUser(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET name=?, email=?, role=?, status=?, updated_at=?, version=version+1 WHERE id=? AND version=?`,
		u.Name, u.Email.String(), string(u.Role), string(u.Status), formatTime(u.UpdatedAt),
		u.ID.String(), u.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=?`, u.ID.String()).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func scanUser(scan func(dest ...any) error) (*domain.User, error) {
	var u domain.User
	var id, email, role, status, createdAt, updatedAt string
	err := scan(&id, &u.Name, &email, &role, &status, &createdAt, &updatedAt, &u.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.ID, err = domain.ParseUserID(id); err != nil {
		return nil, err
	}
	if u.Email, err = domain.NewEmailAddress(email); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	u.Status = domain.UserStatus(status)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r Repo) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id.String())
	return scanUser(row.Scan)
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id domain.UserID) (*domain.User, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id.String())
	return scanUser(row.Scan)
}

func (r Repo) GetUserByEmail(ctx context.Context, email domain.EmailAddress) (*domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email.String())
	return scanUser(row.Scan)
}

type UserFilters struct {
	Role   string
	Status string
	Limit  int
}

func (r Repo) ListUsers(ctx context.Context, f UserFilters) ([]*domain.User, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
