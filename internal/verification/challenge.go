package verification

import (
	"context"
	"errors"
	"time"

	"verilol/internal/riotapi"
)

// Challenge is one pending verification attempt: the user behind
// RequestingUserId has been asked to set the profile icon
// RequestedIconId on the account behind AccountId before ExpiresAt
type Challenge struct {
	Id               string           `json:"id"`
	AccountId        riotapi.Puuid    `json:"account_id"`
	RequestedIconId  int              `json:"requested_icon_id"`
	RequestingUserId string           `json:"requesting_user_id"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
}

func (ch *Challenge) Expired(now time.Time) bool {
	return now.After(ch.ExpiresAt)
}

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge expired")
	ErrChallengeForbidden = errors.New("challenge belongs to another user")
	ErrIconMismatch       = errors.New("profile icon does not match the requested one")
	ErrNoRankedData       = errors.New("no ranked data for this account")
	ErrInvalidRange       = errors.New("icon range does not leave any icon to pick")
)

// Store holds pending challenges between the two interactions of a
// verification. Only one challenge may be pending per account: creating
// a new one invalidates whatever was pending for that account
type Store interface {
	// Create allocates a fresh challenge with a unique id
	Create(ctx context.Context, accountId riotapi.Puuid, iconId int, userId string, ttl time.Duration) (Challenge, error)

	// Consume atomically removes and returns the challenge.
	// It fails with ErrChallengeNotFound if the id is absent or already
	// consumed, ErrChallengeExpired if the record outlived its ttl
	// (removing it as a side effect), and ErrChallengeForbidden if the
	// caller is not the user that requested it (the record survives)
	Consume(ctx context.Context, challengeId string, callerUserId string) (Challenge, error)

	// Restore puts a consumed challenge back with its original expiry.
	// Used when a confirmation only failed on an icon mismatch, so the
	// user can fix the icon and confirm again before the ttl runs out
	Restore(ctx context.Context, ch Challenge) error
}
