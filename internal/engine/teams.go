package engine

import (
	"context"

	"taskboard/internal/domain"
)

func (e Engine) CreateTeam(ctx context.Context, name, description string, actorID domain.UserID) (*domain.Team, error) {
	t, err := domain.NewTeam(name, description, actorID, e.now)
	if err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTeam(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := e.Events.AppendAll(ctx, tx, actorID.String(), t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) saveTeam(ctx context.Context, t *domain.Team, actorID domain.UserID) error {
	if len(t.PendingEvents()) == 0 {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateTeam(ctx, tx, t); err != nil {
		return err
	}
	if err := e.Events.AppendAll(ctx, tx, actorID.String(), t); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) UpdateTeamInfo(ctx context.Context, id domain.TeamID, name, description string, actorID domain.UserID) (*domain.Team, error) {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.UpdateInfo(name, description, actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTeam(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) ChangeTeamStatus(ctx context.Context, id domain.TeamID, status string, actorID domain.UserID) (*domain.Team, error) {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.ChangeStatus(domain.TeamStatus(status), actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTeam(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

// AddTeamMember rejects inactive users before the aggregate applies its own
// capacity and lifecycle rules.
func (e Engine) AddTeamMember(ctx context.Context, id domain.TeamID, userID domain.UserID, role string, actorID domain.UserID) (*domain.Team, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, domain.NewRuleViolation("user %s is %s and cannot join a team", u.ID, u.Status)
	}
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.AddMember(userID, domain.TeamRole(role), actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTeam(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) RemoveTeamMember(ctx context.Context, id domain.TeamID, userID domain.UserID, actorID domain.UserID) (*domain.Team, error) {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.RemoveMember(userID, actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTeam(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) ChangeTeamMemberRole(ctx context.Context, id domain.TeamID, userID domain.UserID, role string, actorID domain.UserID) (*domain.Team, error) {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.ChangeMemberRole(userID, domain.TeamRole(role), actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTeam(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) GetTeam(ctx context.Context, id domain.TeamID) (*domain.Team, error) {
	return e.Repo.GetTeam(ctx, id)
}

func (e Engine) ListTeams(ctx context.Context, status string) ([]*domain.Team, error) {
	return e.Repo.ListTeams(ctx, status)
}
