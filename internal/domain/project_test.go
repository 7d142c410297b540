package domain_test

import (
	"errors"
	"testing"
	"time"

	"taskboard/internal/domain"
)

func newProject(t *testing.T) *domain.Project {
	t.Helper()
	p, err := domain.NewProject("Rollout", "ship it", domain.NewTeamID(), nil, domain.NewUserID(), fixedNow)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	p.ClearEvents()
	return p
}

func TestNewProjectValidation(t *testing.T) {
	creator := domain.NewUserID()
	teamID := domain.NewTeamID()

	var argErr *domain.ArgumentError
	if _, err := domain.NewProject("", "", teamID, nil, creator, fixedNow); !errors.As(err, &argErr) {
		t.Fatalf("empty name: expected ArgumentError, got %v", err)
	}
	if _, err := domain.NewProject("Rollout", "", domain.TeamID{}, nil, creator, fixedNow); err == nil {
		t.Fatalf("expected error for missing team")
	}
	past := fixedNow().Add(-time.Hour)
	if _, err := domain.NewProject("Rollout", "", teamID, &past, creator, fixedNow); err == nil {
		t.Fatalf("expected error for past planned end")
	}

	future := fixedNow().Add(30 * 24 * time.Hour)
	p, err := domain.NewProject("Rollout", "", teamID, &future, creator, fixedNow)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	if p.Status != domain.ProjectPlanned {
		t.Fatalf("expected planned, got %s", p.Status)
	}
	if len(p.PendingEvents()) != 1 || p.PendingEvents()[0].EventName() != "project.created" {
		t.Fatalf("expected project.created event")
	}
}

func TestProjectStatusAdjacency(t *testing.T) {
	all := []domain.ProjectStatus{domain.ProjectPlanned, domain.ProjectActive, domain.ProjectCompleted, domain.ProjectCancelled}
	allowed := map[domain.ProjectStatus][]domain.ProjectStatus{
		domain.ProjectPlanned:   {domain.ProjectActive, domain.ProjectCancelled},
		domain.ProjectActive:    {domain.ProjectCompleted, domain.ProjectCancelled},
		domain.ProjectCompleted: {},
		domain.ProjectCancelled: {},
	}
	seed := func(t *testing.T, status domain.ProjectStatus) *domain.Project {
		p := newProject(t)
		switch status {
		case domain.ProjectPlanned:
		case domain.ProjectActive:
			if err := p.ChangeStatus(domain.ProjectActive, domain.NewUserID(), fixedNow); err != nil {
				t.Fatalf("seed active: %v", err)
			}
		case domain.ProjectCompleted:
			if err := p.ChangeStatus(domain.ProjectActive, domain.NewUserID(), fixedNow); err != nil {
				t.Fatalf("seed active: %v", err)
			}
			if err := p.ChangeStatus(domain.ProjectCompleted, domain.NewUserID(), fixedNow); err != nil {
				t.Fatalf("seed completed: %v", err)
			}
		case domain.ProjectCancelled:
			if err := p.Cancel(domain.NewUserID(), fixedNow); err != nil {
				t.Fatalf("seed cancelled: %v", err)
			}
		}
		p.ClearEvents()
		return p
	}
	for from, tos := range allowed {
		permitted := map[domain.ProjectStatus]bool{from: true}
		for _, to := range tos {
			permitted[to] = true
		}
		for _, to := range all {
			p := seed(t, from)
			err := p.ChangeStatus(to, domain.NewUserID(), fixedNow)
			if permitted[to] && err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
			if !permitted[to] && err == nil {
				t.Errorf("%s -> %s: expected rejection", from, to)
			}
		}
	}
}

func TestProjectLifecycleTimestamps(t *testing.T) {
	p := newProject(t)
	if p.StartDate != nil {
		t.Fatalf("planned project must not have a start date")
	}
	if err := p.ChangeStatus(domain.ProjectActive, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if p.StartDate == nil || !p.StartDate.Equal(fixedNow()) {
		t.Fatalf("start date not stamped on activation")
	}
	if err := p.ChangeStatus(domain.ProjectCompleted, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.EndDate == nil || !p.EndDate.Equal(fixedNow()) {
		t.Fatalf("end date not stamped on completion")
	}
}

func TestProjectCancelFromAnyNonTerminal(t *testing.T) {
	p := newProject(t)
	if err := p.Cancel(domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("cancel from planned: %v", err)
	}
	if p.Status != domain.ProjectCancelled || p.EndDate == nil {
		t.Fatalf("expected cancelled with end date")
	}
	if err := p.Cancel(domain.NewUserID(), fixedNow); err == nil {
		t.Fatalf("expected error cancelling twice")
	}

	active := newProject(t)
	if err := active.ChangeStatus(domain.ProjectActive, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := active.Cancel(domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("cancel from active: %v", err)
	}
}

func TestTerminalProjectRejectsUpdates(t *testing.T) {
	p := newProject(t)
	if err := p.Cancel(domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err := p.UpdateInfo("Rollout v2", "", nil, domain.NewUserID(), fixedNow)
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError on terminal update, got %v", err)
	}
}

func TestProjectUpdateInfoNoOp(t *testing.T) {
	p := newProject(t)
	if err := p.UpdateInfo("Rollout", "ship it", nil, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if len(p.PendingEvents()) != 0 {
		t.Fatalf("unchanged info must not raise events")
	}
	if err := p.UpdateInfo("Rollout v2", "ship it", nil, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(p.PendingEvents()) != 1 || p.PendingEvents()[0].EventName() != "project.updated" {
		t.Fatalf("expected project.updated event")
	}
}
