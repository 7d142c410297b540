package repo

import (
	"context"
	"database/sql"

	"taskboard/internal/domain"
)

const teamColumns = `id,name,description,status,created_at,updated_at,version`

func (r Repo) InsertTeam(ctx context.Context, tx *sql.Tx, t *domain.Team) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO teams(`+teamColumns+`) VALUES (?,?,?,?,?,?,?)`,
		t.ID.String(), t.Name, t.Description, string(t.Status),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), 1)
	if err != nil {
		return err
	}
	return r.saveMembers(ctx, tx, t)
}

// UpdateTeam persists the aggregate and its owned membership rows under the
// caller's transaction, enforcing the loaded version.
func (r Repo) UpdateTeam(ctx context.Context, tx *sql.Tx, t *domain.Team) error {
	res, err := tx.ExecContext(ctx, `UPDATE teams SET name=?, description=?, status=?, updated_at=?, version=version+1 WHERE id=? AND version=?`,
		t.Name, t.Description, string(t.Status), formatTime(t.UpdatedAt),
		t.ID.String(), t.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE id=?`, t.ID.String()).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return r.saveMembers(ctx, tx, t)
}

// saveMembers replaces the membership rows wholesale; the collection is small
// by invariant and owned entirely by the team.
func (r Repo) saveMembers(ctx context.Context, tx *sql.Tx, t *domain.Team) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id=?`, t.ID.String()); err != nil {
		return err
	}
	for _, m := range t.Members() {
		_, err := tx.ExecContext(ctx, `INSERT INTO team_members(id,team_id,user_id,role,joined_at) VALUES (?,?,?,?,?)`,
			m.ID.String(), t.ID.String(), m.UserID.String(), string(m.Role), formatTime(m.JoinedAt))
		if err != nil {
			return err
		}
	}
	return nil
}

func scanTeam(scan func(dest ...any) error) (*domain.Team, error) {
	var t domain.Team
	var id, status, createdAt, updatedAt string
	err := scan(&id, &t.Name, &t.Description, &status, &createdAt, &updatedAt, &t.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.ID, err = domain.ParseTeamID(id); err != nil {
		return nil, err
	}
	t.Status = domain.TeamStatus(status)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r Repo) loadMembers(ctx context.Context, q querier, teamID domain.TeamID) ([]domain.TeamMember, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,user_id,role,joined_at FROM team_members WHERE team_id=? ORDER BY joined_at ASC, id ASC`, teamID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []domain.TeamMember
	for rows.Next() {
		var m domain.TeamMember
		var id, userID, role, joinedAt string
		if err := rows.Scan(&id, &userID, &role, &joinedAt); err != nil {
			return nil, err
		}
		if m.ID, err = domain.ParseMemberID(id); err != nil {
			return nil, err
		}
		if m.UserID, err = domain.ParseUserID(userID); err != nil {
			return nil, err
		}
		m.Role = domain.TeamRole(role)
		if m.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r Repo) GetTeam(ctx context.Context, id domain.TeamID) (*domain.Team, error) {
	t, err := scanTeam(r.DB.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id=?`, id.String()).Scan)
	if err != nil {
		return nil, err
	}
	members, err := r.loadMembers(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	t.RestoreMembers(members)
	return t, nil
}

func (r Repo) GetTeamTx(ctx context.Context, tx *sql.Tx, id domain.TeamID) (*domain.Team, error) {
	t, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id=?`, id.String()).Scan)
	if err != nil {
		return nil, err
	}
	members, err := r.loadMembers(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	t.RestoreMembers(members)
	return t, nil
}

func (r Repo) ListTeams(ctx context.Context, status string) ([]*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY created_at DESC, id DESC`
	var args []any
	if status != "" {
		query = `SELECT ` + teamColumns + ` FROM teams WHERE status=? ORDER BY created_at DESC, id DESC`
		args = append(args, status)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*domain.Team
	for rows.Next() {
		t, err := scanTeam(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range res {
		members, err := r.loadMembers(ctx, r.DB, t.ID)
		if err != nil {
			return nil, err
		}
		t.RestoreMembers(members)
	}
	return res, nil
}
