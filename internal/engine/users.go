package engine

import (
	"context"
	"errors"

	"taskboard/internal/domain"
	"taskboard/internal/repo"
)

// UserCreateOptions are parameters for registering a user.
type UserCreateOptions struct {
	Name    string
	Email   string
	Role    string
	ActorID domain.UserID
}

func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (*domain.User, error) {
	email, err := domain.NewEmailAddress(opts.Email)
	if err != nil {
		return nil, err
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.NewRuleViolation("email %s already registered", email)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	u, err := domain.NewUser(opts.Name, email, domain.UserRole(opts.Role), opts.ActorID, e.now)
	if err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return nil, err
	}
	if err := e.Events.AppendAll(ctx, tx, opts.ActorID.String(), u); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// saveUser persists a mutated user aggregate and drains its events.
func (e Engine) saveUser(ctx context.Context, u *domain.User, actorID domain.UserID) error {
	if len(u.PendingEvents()) == 0 {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateUser(ctx, tx, u); err != nil {
		return err
	}
	if err := e.Events.AppendAll(ctx, tx, actorID.String(), u); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) UpdateUserProfile(ctx context.Context, id domain.UserID, name, email string, actorID domain.UserID) (*domain.User, error) {
	addr, err := domain.NewEmailAddress(email)
	if err != nil {
		return nil, err
	}
	u, err := e.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if addr != u.Email {
		if _, err := e.Repo.GetUserByEmail(ctx, addr); err == nil {
			return nil, domain.NewRuleViolation("email %s already registered", addr)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	if err := u.UpdateProfile(name, addr, e.now); err != nil {
		return nil, err
	}
	if err := e.saveUser(ctx, u, actorID); err != nil {
		return nil, err
	}
	return u, nil
}

func (e Engine) UpdateUserRole(ctx context.Context, id domain.UserID, role string, actorID domain.UserID) (*domain.User, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.UpdateRole(domain.UserRole(role), actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveUser(ctx, u, actorID); err != nil {
		return nil, err
	}
	return u, nil
}

// SetUserStatus routes to the lifecycle method for the requested status.
func (e Engine) SetUserStatus(ctx context.Context, id domain.UserID, status string, actorID domain.UserID) (*domain.User, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	switch domain.UserStatus(status) {
	case domain.UserActive:
		err = u.Activate(actorID, e.now)
	case domain.UserInactive:
		err = u.Deactivate(actorID, e.now)
	case domain.UserSuspended:
		err = u.Suspend(actorID, e.now)
	default:
		return nil, domain.NewArgumentError("status", "unknown user status %q", status)
	}
	if err != nil {
		return nil, err
	}
	if err := e.saveUser(ctx, u, actorID); err != nil {
		return nil, err
	}
	return u, nil
}

func (e Engine) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return e.Repo.GetUser(ctx, id)
}

func (e Engine) ListUsers(ctx context.Context, f repo.UserFilters) ([]*domain.User, error) {
	return e.Repo.ListUsers(ctx, f)
}
