package repo

import (
	"context"
	"database/sql"

	"taskboard/internal/domain"
)

const projectColumns = `id,name,description,status,team_id,start_date,end_date,planned_end_date,created_at,updated_at,version`

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p *domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), p.Name, p.Description, string(p.Status), p.TeamID.String(),
		formatTimePtr(p.StartDate), formatTimePtr(p.EndDate), formatTimePtr(p.PlannedEndDate),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), 1)
	return err
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p *domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, description=?, status=?, start_date=?, end_date=?, planned_end_date=?, updated_at=?, version=version+1 WHERE id=? AND version=?`,
		p.Name, p.Description, string(p.Status),
		formatTimePtr(p.StartDate), formatTimePtr(p.EndDate), formatTimePtr(p.PlannedEndDate),
		formatTime(p.UpdatedAt), p.ID.String(), p.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id=?`, p.ID.String()).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func scanProject(scan func(dest ...any) error) (*domain.Project, error) {
	var p domain.Project
	var id, status, teamID, createdAt, updatedAt string
	var startDate, endDate, plannedEnd sql.NullString
	err := scan(&id, &p.Name, &p.Description, &status, &teamID, &startDate, &endDate, &plannedEnd, &createdAt, &updatedAt, &p.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.ID, err = domain.ParseProjectID(id); err != nil {
		return nil, err
	}
	if p.TeamID, err = domain.ParseTeamID(teamID); err != nil {
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	if p.StartDate, err = parseTimePtr(startDate); err != nil {
		return nil, err
	}
	if p.EndDate, err = parseTimePtr(endDate); err != nil {
		return nil, err
	}
	if p.PlannedEndDate, err = parseTimePtr(plannedEnd); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r Repo) GetProject(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id.String()).Scan)
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id domain.ProjectID) (*domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id.String()).Scan)
}

// ProjectNameTaken reports whether another project in the team already uses
// the name. The UNIQUE(team_id,name) index backs this as a hard stop.
func (r Repo) ProjectNameTaken(ctx context.Context, tx *sql.Tx, teamID domain.TeamID, name string, exclude domain.ProjectID) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE team_id=? AND name=? AND id<>?`,
		teamID.String(), name, exclude.String()).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r Repo) ListProjects(ctx context.Context, teamID domain.TeamID, status string) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var clauses []string
	var args []any
	if !teamID.IsEmpty() {
		clauses = append(clauses, "team_id=?")
		args = append(args, teamID.String())
	}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) CountTasksByStatus(ctx context.Context, projectID domain.ProjectID) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM tasks WHERE project_id=? GROUP BY status`, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}
