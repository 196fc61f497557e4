package roles

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type fakeSurface struct {
	roles   []*discordgo.Role
	members map[string]*discordgo.Member
}

func newFakeSurface(roleNames ...string) *fakeSurface {
	s := &fakeSurface{members: map[string]*discordgo.Member{}}
	for i, name := range roleNames {
		s.roles = append(s.roles, &discordgo.Role{ID: fmt.Sprintf("role-%d", i), Name: name})
	}
	return s
}

func (s *fakeSurface) member(userId string) *discordgo.Member {
	m, ok := s.members[userId]
	if !ok {
		m = &discordgo.Member{User: &discordgo.User{ID: userId}}
		s.members[userId] = m
	}
	return m
}

func (s *fakeSurface) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return s.roles, nil
}

func (s *fakeSurface) GuildMember(guildID string, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	return s.member(userID), nil
}

func (s *fakeSurface) GuildMemberRoleAdd(guildID string, userID string, roleID string, options ...discordgo.RequestOption) error {
	m := s.member(userID)
	m.Roles = append(m.Roles, roleID)
	return nil
}

func (s *fakeSurface) GuildMemberRoleRemove(guildID string, userID string, roleID string, options ...discordgo.RequestOption) error {
	m := s.member(userID)
	kept := make([]string, 0, len(m.Roles))
	for _, id := range m.Roles {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.Roles = kept
	return nil
}

func (s *fakeSurface) roleNames(userId string) []string {
	byId := map[string]string{}
	for _, role := range s.roles {
		byId[role.ID] = role.Name
	}
	var names []string
	for _, id := range s.member(userId).Roles {
		names = append(names, byId[id])
	}
	return names
}

var testMapping = NewMapping(map[string]string{
	"IRON":   "Iron",
	"BRONZE": "Bronze",
	"SILVER": "Silver",
	"GOLD":   "Gold",
})

func countTierRoles(t *testing.T, surface *fakeSurface, userId string) (int, string) {
	t.Helper()
	count := 0
	last := ""
	for _, name := range surface.roleNames(userId) {
		if testMapping.IsTierRole(name) {
			count++
			last = name
		}
	}
	return count, last
}

func TestApplySwapsTierRoles(t *testing.T) {
	surface := newFakeSurface("Iron", "Bronze", "Silver", "Gold", "Moderator")
	resolver := NewResolver(surface, "guild-1", testMapping)

	// The member starts with two stale tier roles plus an unrelated one
	member := surface.member("user-1")
	member.Roles = []string{"role-0", "role-2", "role-4"}

	roleName, err := resolver.Apply("user-1", "gold")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if roleName != "Gold" {
		t.Fatalf("expected role Gold, got %q", roleName)
	}

	count, last := countTierRoles(t, surface, "user-1")
	if count != 1 || last != "Gold" {
		t.Fatalf("expected exactly the Gold tier role, got %v", surface.roleNames("user-1"))
	}
	// The unrelated role is untouched
	found := false
	for _, name := range surface.roleNames("user-1") {
		if name == "Moderator" {
			found = true
		}
	}
	if !found {
		t.Fatalf("non-tier role was removed: %v", surface.roleNames("user-1"))
	}
}

func TestApplyIdempotent(t *testing.T) {
	surface := newFakeSurface("Iron", "Bronze", "Silver", "Gold")
	resolver := NewResolver(surface, "guild-1", testMapping)

	for i := 0; i < 2; i++ {
		if _, err := resolver.Apply("user-1", "GOLD"); err != nil {
			t.Fatalf("Apply #%d: %v", i+1, err)
		}
	}

	count, last := countTierRoles(t, surface, "user-1")
	if count != 1 || last != "Gold" {
		t.Fatalf("expected exactly one Gold role after two applies, got %v", surface.roleNames("user-1"))
	}
}

func TestApplyUnknownTier(t *testing.T) {
	surface := newFakeSurface("Iron", "Bronze")
	resolver := NewResolver(surface, "guild-1", testMapping)

	if _, err := resolver.Apply("user-1", "WOOD"); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestApplyRoleNotConfigured(t *testing.T) {
	// The guild is missing the Gold role entirely
	surface := newFakeSurface("Iron", "Bronze")
	resolver := NewResolver(surface, "guild-1", testMapping)

	if _, err := resolver.Apply("user-1", "GOLD"); !errors.Is(err, ErrRoleNotConfigured) {
		t.Fatalf("expected ErrRoleNotConfigured, got %v", err)
	}
}
