package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verilol/internal/riotapi"

	"github.com/rs/zerolog/log"
)

// Provider is the slice of the riot API the verification needs.
// *riotapi.RiotApi satisfies it
type Provider interface {
	GetPuuid(ctx context.Context, riotid riotapi.RiotId) (riotapi.Puuid, error)
	GetSummoner(ctx context.Context, puuid riotapi.Puuid) (riotapi.Summoner, error)
	GetLeagues(ctx context.Context, summonerId riotapi.SummonerId) ([]riotapi.League, error)
	ProfileIconUrl(iconId int) string
}

// RoleApplier swaps the tier role of a guild member
type RoleApplier interface {
	Apply(memberId string, tier string) (string, error)
}

// Presentation is what the interaction layer renders after a
// verification starts: which icon to set, how it looks, and the
// opaque id the confirm control carries
type Presentation struct {
	ChallengeId string
	RiotId      riotapi.RiotId
	IconId      int
	IconUrl     string
	ExpiresAt   time.Time
}

// Result of a successful confirmation
type Result struct {
	AccountId  riotapi.Puuid
	SummonerId riotapi.SummonerId
	Tier       string
	RoleName   string
}

// Workflow drives a verification through its states:
// Start issues a challenge, Confirm consumes it and either ends it
// (confirmed, expired, forbidden) or hands it back on icon mismatch
type Workflow struct {
	provider Provider
	store    Store
	roles    RoleApplier
	ttl      time.Duration
	iconMin  int
	iconMax  int
}

func NewWorkflow(provider Provider, store Store, roles RoleApplier, ttl time.Duration, iconMin int, iconMax int) *Workflow {
	return &Workflow{provider: provider, store: store, roles: roles, ttl: ttl, iconMin: iconMin, iconMax: iconMax}
}

// Start resolves the handle, draws a challenge icon distinct from the
// account's current one and stores the challenge.
// A malformed handle fails before any provider call
func (wf *Workflow) Start(ctx context.Context, rawHandle string, userId string) (Presentation, error) {

	riotid, err := riotapi.ParseRiotId(rawHandle)
	if err != nil {
		return Presentation{}, err
	}

	puuid, err := wf.provider.GetPuuid(ctx, riotid)
	if err != nil {
		return Presentation{}, err
	}

	summoner, err := wf.provider.GetSummoner(ctx, puuid)
	if err != nil {
		return Presentation{}, err
	}

	iconId, err := RandomIcon(summoner.ProfileIconId, wf.iconMin, wf.iconMax)
	if err != nil {
		return Presentation{}, err
	}

	ch, err := wf.store.Create(ctx, puuid, iconId, userId, wf.ttl)
	if err != nil {
		return Presentation{}, fmt.Errorf("could not store challenge: %w", err)
	}

	log.Info().Msg(fmt.Sprintf("Challenge %s issued for %s: icon %d until %s", ch.Id, &riotid, iconId, ch.ExpiresAt.Format(time.RFC3339)))
	return Presentation{
		ChallengeId: ch.Id,
		RiotId:      riotid,
		IconId:      iconId,
		IconUrl:     wf.provider.ProfileIconUrl(iconId),
		ExpiresAt:   ch.ExpiresAt,
	}, nil
}

// Confirm consumes the challenge and checks the account's current icon
// against the requested one. On mismatch the challenge is handed back
// untouched so the user can retry until it expires. On a provider
// failure after the consume the challenge is gone; the user has to
// start over
func (wf *Workflow) Confirm(ctx context.Context, challengeId string, callerUserId string) (Result, error) {

	ch, err := wf.store.Consume(ctx, challengeId, callerUserId)
	if err != nil {
		return Result{}, err
	}

	summoner, err := wf.provider.GetSummoner(ctx, ch.AccountId)
	if err != nil {
		return Result{}, err
	}

	if summoner.ProfileIconId != ch.RequestedIconId {
		// Expected outcome: the user has not changed the icon yet
		if err := wf.store.Restore(ctx, ch); err != nil {
			log.Warn().Msg(fmt.Sprintf("Could not restore challenge %s after icon mismatch", ch.Id))
		}
		return Result{}, ErrIconMismatch
	}

	leagues, err := wf.provider.GetLeagues(ctx, summoner.Id)
	if err != nil {
		return Result{}, err
	}
	solo, ok := riotapi.SoloQueue(leagues)
	if !ok {
		// Expected outcome for unranked accounts
		return Result{}, ErrNoRankedData
	}

	roleName, err := wf.roles.Apply(callerUserId, solo.Tier)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		AccountId:  ch.AccountId,
		SummonerId: summoner.Id,
		Tier:       solo.Tier,
		RoleName:   roleName,
	}
	log.Info().Msg(fmt.Sprintf("Challenge %s confirmed: user %s owns account %s, role %s", ch.Id, callerUserId, ch.AccountId, roleName))
	return result, nil
}

// Transient reports if an error should be presented to the user as a
// temporary provider problem worth retrying
func Transient(err error) bool {
	return errors.Is(err, riotapi.ErrUnavailable) || errors.Is(err, riotapi.ErrRateLimited)
}
