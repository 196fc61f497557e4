package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"verilol/internal/riotapi"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MemoryStore keeps pending challenges in process memory.
// Good enough for single-instance deployments; replicated deployments
// have to use the redis store instead so that the issue and the confirm
// interactions can land on different replicas
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	byAccount  map[riotapi.Puuid]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: map[string]Challenge{},
		byAccount:  map[riotapi.Puuid]string{},
	}
}

func (s *MemoryStore) Create(ctx context.Context, accountId riotapi.Puuid, iconId int, userId string, ttl time.Duration) (Challenge, error) {

	now := time.Now()
	ch := Challenge{
		Id:               uuid.NewString(),
		AccountId:        accountId,
		RequestedIconId:  iconId,
		RequestingUserId: userId,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// One pending challenge per account: a new one invalidates the old
	if previous, ok := s.byAccount[accountId]; ok {
		delete(s.challenges, previous)
		log.Debug().Msg(fmt.Sprintf("Challenge %s superseded by %s for account %s", previous, ch.Id, accountId))
	}
	s.challenges[ch.Id] = ch
	s.byAccount[accountId] = ch.Id

	return ch, nil
}

func (s *MemoryStore) Consume(ctx context.Context, challengeId string, callerUserId string) (Challenge, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[challengeId]
	if !ok {
		return Challenge{}, ErrChallengeNotFound
	}
	if ch.Expired(time.Now()) {
		s.remove(ch)
		return Challenge{}, ErrChallengeExpired
	}
	if ch.RequestingUserId != callerUserId {
		// The record survives so the rightful user can still confirm
		return Challenge{}, ErrChallengeForbidden
	}

	s.remove(ch)
	return ch, nil
}

func (s *MemoryStore) Restore(ctx context.Context, ch Challenge) error {

	if ch.Expired(time.Now()) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Do not clobber a newer challenge issued for the same account
	if _, ok := s.byAccount[ch.AccountId]; ok {
		return nil
	}
	s.challenges[ch.Id] = ch
	s.byAccount[ch.AccountId] = ch.Id
	return nil
}

// Sweep drops every expired challenge and returns how many were dropped.
// Expiry is also detected on access, so this only keeps abandoned
// challenges from piling up
func (s *MemoryStore) Sweep() int {

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, ch := range s.challenges {
		if ch.Expired(now) {
			s.remove(ch)
			count++
		}
	}
	if count > 0 {
		log.Debug().Msg(fmt.Sprintf("Swept %d expired challenges, %d remain", count, len(s.challenges)))
	}
	return count
}

func (s *MemoryStore) remove(ch Challenge) {
	delete(s.challenges, ch.Id)
	if s.byAccount[ch.AccountId] == ch.Id {
		delete(s.byAccount, ch.AccountId)
	}
}
