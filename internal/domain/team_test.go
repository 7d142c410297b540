package domain_test

import (
	"errors"
	"testing"

	"taskboard/internal/domain"
)

func newTeam(t *testing.T) *domain.Team {
	t.Helper()
	team, err := domain.NewTeam("Alpha", "first team", domain.NewUserID(), fixedNow)
	if err != nil {
		t.Fatalf("new team: %v", err)
	}
	team.ClearEvents()
	return team
}

func TestNewTeamRequiresCreator(t *testing.T) {
	if _, err := domain.NewTeam("Alpha", "", domain.UserID{}, fixedNow); err == nil {
		t.Fatalf("expected error for empty creator")
	}
	team, err := domain.NewTeam("Alpha", "", domain.NewUserID(), fixedNow)
	if err != nil {
		t.Fatalf("new team: %v", err)
	}
	if team.Status != domain.TeamActive {
		t.Fatalf("expected active, got %s", team.Status)
	}
	if len(team.PendingEvents()) != 1 || team.PendingEvents()[0].EventName() != "team.created" {
		t.Fatalf("expected team.created event")
	}
}

func TestAddMemberDuplicateFails(t *testing.T) {
	team := newTeam(t)
	pm := domain.NewUserID()
	dev := domain.NewUserID()
	if err := team.AddMember(dev, domain.TeamRoleDeveloper, pm, fixedNow); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if team.MemberCount() != 1 {
		t.Fatalf("expected 1 member, got %d", team.MemberCount())
	}
	err := team.AddMember(dev, domain.TeamRoleTeamLead, pm, fixedNow)
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError for duplicate member, got %v", err)
	}
	if team.MemberCount() != 1 {
		t.Fatalf("member count changed on failed add: %d", team.MemberCount())
	}
}

func TestAddMemberCapacity(t *testing.T) {
	team := newTeam(t)
	pm := domain.NewUserID()
	for i := 0; i < domain.MaxTeamMembers; i++ {
		if err := team.AddMember(domain.NewUserID(), domain.TeamRoleDeveloper, pm, fixedNow); err != nil {
			t.Fatalf("add member %d: %v", i, err)
		}
	}
	if team.HasRoom() {
		t.Fatalf("expected full team")
	}
	if err := team.AddMember(domain.NewUserID(), domain.TeamRoleDeveloper, pm, fixedNow); err == nil {
		t.Fatalf("expected capacity error")
	}
	if team.MemberCount() != domain.MaxTeamMembers {
		t.Fatalf("capacity invariant broken: %d", team.MemberCount())
	}
}

func TestArchivedTeamRejectsMembers(t *testing.T) {
	team := newTeam(t)
	if err := team.ChangeStatus(domain.TeamArchived, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := team.AddMember(domain.NewUserID(), domain.TeamRoleDeveloper, domain.NewUserID(), fixedNow); err == nil {
		t.Fatalf("expected rejection on archived team")
	}
	if team.CanAcceptNewMembers() {
		t.Fatalf("archived team must not accept members")
	}
}

func TestTeamStatusAdjacency(t *testing.T) {
	allStatuses := []domain.TeamStatus{domain.TeamActive, domain.TeamInactive, domain.TeamArchived, domain.TeamPending}
	allowed := map[domain.TeamStatus][]domain.TeamStatus{
		domain.TeamActive:   {domain.TeamInactive, domain.TeamArchived},
		domain.TeamInactive: {domain.TeamActive, domain.TeamArchived},
		domain.TeamArchived: {},
		domain.TeamPending:  {domain.TeamActive, domain.TeamInactive},
	}
	for from, tos := range allowed {
		permitted := map[domain.TeamStatus]bool{from: true}
		for _, to := range tos {
			permitted[to] = true
		}
		for _, to := range allStatuses {
			team := newTeam(t)
			// Force the starting status through the public API.
			switch from {
			case domain.TeamActive:
			case domain.TeamInactive, domain.TeamArchived:
				if err := team.ChangeStatus(from, domain.NewUserID(), fixedNow); err != nil {
					t.Fatalf("seed status %s: %v", from, err)
				}
			case domain.TeamPending:
				continue // unreachable from a fresh team
			}
			team.ClearEvents()
			err := team.ChangeStatus(to, domain.NewUserID(), fixedNow)
			if permitted[to] && err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
			if !permitted[to] {
				if err == nil {
					t.Errorf("%s -> %s: expected rejection", from, to)
				}
				if team.Status != from {
					t.Errorf("%s -> %s: status changed on failure", from, to)
				}
			}
		}
	}
}

func TestChangeStatusNoOpOnSame(t *testing.T) {
	team := newTeam(t)
	if err := team.ChangeStatus(domain.TeamActive, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("same-status change: %v", err)
	}
	if len(team.PendingEvents()) != 0 {
		t.Fatalf("no-op change must not raise events")
	}
}

func TestRemoveMember(t *testing.T) {
	team := newTeam(t)
	dev := domain.NewUserID()
	if err := team.RemoveMember(dev, domain.NewUserID(), fixedNow); err == nil {
		t.Fatalf("expected error removing non-member")
	}
	if err := team.AddMember(dev, domain.TeamRoleDeveloper, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := team.RemoveMember(dev, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if team.MemberCount() != 0 {
		t.Fatalf("expected empty team")
	}
}

func TestChangeMemberRole(t *testing.T) {
	team := newTeam(t)
	dev := domain.NewUserID()
	if err := team.ChangeMemberRole(dev, domain.TeamRoleTeamLead, domain.NewUserID(), fixedNow); err == nil {
		t.Fatalf("expected error for non-member")
	}
	if err := team.AddMember(dev, domain.TeamRoleDeveloper, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := team.ChangeMemberRole(dev, domain.TeamRoleTeamLead, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("change role: %v", err)
	}
	m, ok := team.Member(dev)
	if !ok || m.Role != domain.TeamRoleTeamLead {
		t.Fatalf("expected team_lead role, got %+v", m)
	}
	if len(team.MembersByRole(domain.TeamRoleTeamLead)) != 1 {
		t.Fatalf("expected one team lead")
	}
}

func TestStatusChangedEventMetadata(t *testing.T) {
	team := newTeam(t)
	if err := team.ChangeStatus(domain.TeamArchived, domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("archive: %v", err)
	}
	events := team.PendingEvents()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	evt, ok := events[0].(domain.TeamStatusChanged)
	if !ok {
		t.Fatalf("expected TeamStatusChanged, got %T", events[0])
	}
	if !evt.IsSignificantChange() || !evt.RequiresNotification() || evt.NotificationPriority() != "high" {
		t.Fatalf("archiving must classify as significant/high")
	}
}

func TestUpdateInfoRaisesEvent(t *testing.T) {
	team := newTeam(t)
	if err := team.UpdateInfo("Alpha", "first team", domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if len(team.PendingEvents()) != 0 {
		t.Fatalf("unchanged info must not raise events")
	}
	if err := team.UpdateInfo("Beta", "renamed", domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(team.PendingEvents()) != 1 || team.PendingEvents()[0].EventName() != "team.updated" {
		t.Fatalf("expected team.updated event")
	}
}
