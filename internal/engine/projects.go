package engine

import (
	"context"
	"time"

	"taskboard/internal/domain"
)

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	Name           string
	Description    string
	TeamID         domain.TeamID
	PlannedEndDate *time.Time
	ActorID        domain.UserID
}

// CreateProject gates on the owning team's lifecycle and on name uniqueness
// within the team. The uniqueness check runs inside the insert transaction so
// concurrent creates settle on the UNIQUE index.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (*domain.Project, error) {
	team, err := e.Repo.GetTeam(ctx, opts.TeamID)
	if err != nil {
		return nil, err
	}
	if !team.Status.AllowsProjectCreation() {
		return nil, domain.NewRuleViolation("team %s is %s and cannot own new projects", team.ID, team.Status)
	}
	p, err := domain.NewProject(opts.Name, opts.Description, opts.TeamID, opts.PlannedEndDate, opts.ActorID, e.now)
	if err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	taken, err := e.Repo.ProjectNameTaken(ctx, tx, opts.TeamID, p.Name, p.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewRuleViolation("project name %q already used in team %s", p.Name, opts.TeamID)
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := e.Events.AppendAll(ctx, tx, opts.ActorID.String(), p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (e Engine) saveProject(ctx context.Context, p *domain.Project, actorID domain.UserID) error {
	if len(p.PendingEvents()) == 0 {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return err
	}
	if err := e.Events.AppendAll(ctx, tx, actorID.String(), p); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) UpdateProjectInfo(ctx context.Context, id domain.ProjectID, name, description string, plannedEnd *time.Time, actorID domain.UserID) (*domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	renamed := name != p.Name
	if err := p.UpdateInfo(name, description, plannedEnd, actorID, e.now); err != nil {
		return nil, err
	}
	if len(p.PendingEvents()) == 0 {
		return p, nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if renamed {
		taken, err := e.Repo.ProjectNameTaken(ctx, tx, p.TeamID, p.Name, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.NewRuleViolation("project name %q already used in team %s", p.Name, p.TeamID)
		}
	}
	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := e.Events.AppendAll(ctx, tx, actorID.String(), p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (e Engine) ChangeProjectStatus(ctx context.Context, id domain.ProjectID, status string, actorID domain.UserID) (*domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.ChangeStatus(domain.ProjectStatus(status), actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveProject(ctx, p, actorID); err != nil {
		return nil, err
	}
	return p, nil
}

func (e Engine) CancelProject(ctx context.Context, id domain.ProjectID, actorID domain.UserID) (*domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Cancel(actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveProject(ctx, p, actorID); err != nil {
		return nil, err
	}
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	return e.Repo.GetProject(ctx, id)
}

func (e Engine) ListProjects(ctx context.Context, teamID domain.TeamID, status string) ([]*domain.Project, error) {
	return e.Repo.ListProjects(ctx, teamID, status)
}

// ProjectStatusCounts reports how many tasks sit in each workflow state.
func (e Engine) ProjectStatusCounts(ctx context.Context, id domain.ProjectID) (map[string]int, error) {
	if _, err := e.Repo.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return e.Repo.CountTasksByStatus(ctx, id)
}
