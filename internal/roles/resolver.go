package roles

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownTier       = errors.New("tier has no configured role")
	ErrRoleNotConfigured = errors.New("guild has no role with the configured name")
)

// Mapping goes from a ranked tier (case insensitive) to the name of
// the guild role for it. It also defines the full set of tier roles
// that a member may hold at most one of
type Mapping struct {
	byTier    map[string]string
	roleNames map[string]struct{}
}

func NewMapping(tierToRole map[string]string) Mapping {
	m := Mapping{byTier: map[string]string{}, roleNames: map[string]struct{}{}}
	for tier, role := range tierToRole {
		m.byTier[strings.ToLower(tier)] = role
		m.roleNames[strings.ToLower(role)] = struct{}{}
	}
	return m
}

// Resolve maps a tier to its role name
func (m Mapping) Resolve(tier string) (string, error) {
	role, ok := m.byTier[strings.ToLower(tier)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return role, nil
}

// IsTierRole reports if a role name belongs to the tier role set
func (m Mapping) IsTierRole(roleName string) bool {
	_, ok := m.roleNames[strings.ToLower(roleName)]
	return ok
}

// Surface is the slice of the discord API the resolver mutates roles
// through. *discordgo.Session satisfies it
type Surface interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID string, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID string, userID string, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID string, userID string, roleID string, options ...discordgo.RequestOption) error
}

// Resolver swaps tier roles on guild members so that a member holds
// exactly one tier role after a successful apply
type Resolver struct {
	surface Surface
	guildId string
	mapping Mapping
}

func NewResolver(surface Surface, guildId string, mapping Mapping) *Resolver {
	return &Resolver{surface: surface, guildId: guildId, mapping: mapping}
}

// Apply strips every tier role the member holds and grants the one for
// the provided tier. Calling it twice with the same tier leaves the
// member with that single tier role
func (r *Resolver) Apply(memberId string, tier string) (string, error) {

	target, err := r.mapping.Resolve(tier)
	if err != nil {
		// Deployment misconfiguration, worth operator attention
		log.Error().Msg(fmt.Sprintf("Tier %q is not in the role mapping", tier))
		return "", err
	}

	guildRoles, err := r.surface.GuildRoles(r.guildId)
	if err != nil {
		return "", fmt.Errorf("could not list roles of guild %s: %w", r.guildId, err)
	}

	var targetId string
	tierRoleIds := map[string]string{} // role id -> role name
	for _, role := range guildRoles {
		if r.mapping.IsTierRole(role.Name) {
			tierRoleIds[role.ID] = role.Name
		}
		if strings.EqualFold(role.Name, target) {
			targetId = role.ID
		}
	}
	if targetId == "" {
		log.Error().Msg(fmt.Sprintf("Guild %s has no role named %q", r.guildId, target))
		return "", fmt.Errorf("%w: %q", ErrRoleNotConfigured, target)
	}

	member, err := r.surface.GuildMember(r.guildId, memberId)
	if err != nil {
		return "", fmt.Errorf("could not fetch member %s: %w", memberId, err)
	}

	holdsTarget := false
	for _, roleId := range member.Roles {
		if roleId == targetId {
			holdsTarget = true
			continue
		}
		if name, ok := tierRoleIds[roleId]; ok {
			if err := r.surface.GuildMemberRoleRemove(r.guildId, memberId, roleId); err != nil {
				return "", fmt.Errorf("could not remove role %q from member %s: %w", name, memberId, err)
			}
			log.Debug().Msg(fmt.Sprintf("Removed tier role %q from member %s", name, memberId))
		}
	}

	if !holdsTarget {
		if err := r.surface.GuildMemberRoleAdd(r.guildId, memberId, targetId); err != nil {
			return "", fmt.Errorf("could not add role %q to member %s: %w", target, memberId, err)
		}
	}

	return target, nil
}
