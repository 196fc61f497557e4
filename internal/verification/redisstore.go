package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"verilol/internal/riotapi"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending challenges in a shared redis, so the issue
// and the confirm interactions may be served by different replicas.
// Expiry is enforced twice: by the key ttl and by the ExpiresAt field,
// so a consume after expiry always fails even if redis lags on eviction
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) keyChallenge(id string) string { return "verify:ch:" + id }
func (s *RedisStore) keyAccount(puuid riotapi.Puuid) string { return "verify:account:" + string(puuid) }

func (s *RedisStore) Create(ctx context.Context, accountId riotapi.Puuid, iconId int, userId string, ttl time.Duration) (Challenge, error) {

	now := time.Now()
	ch := Challenge{
		Id:               uuid.NewString(),
		AccountId:        accountId,
		RequestedIconId:  iconId,
		RequestingUserId: userId,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
	raw, err := json.Marshal(&ch)
	if err != nil {
		return Challenge{}, err
	}

	accKey := s.keyAccount(accountId)
	for attempt := 0; attempt < 5; attempt++ {
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			previous, err := tx.Get(ctx, accKey).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			pipe := tx.TxPipeline()
			if previous != "" {
				// One pending challenge per account
				pipe.Del(ctx, s.keyChallenge(previous))
			}
			pipe.Set(ctx, s.keyChallenge(ch.Id), raw, ttl)
			pipe.Set(ctx, accKey, ch.Id, ttl)
			_, pErr := pipe.Exec(ctx)
			return pErr
		}, accKey)
		if err == nil {
			return ch, nil
		}
		if err != redis.TxFailedErr {
			return Challenge{}, err
		}
	}
	return Challenge{}, fmt.Errorf("could not store challenge: %w", err)
}

func (s *RedisStore) Consume(ctx context.Context, challengeId string, callerUserId string) (Challenge, error) {

	chKey := s.keyChallenge(challengeId)
	var ch Challenge

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, chKey).Bytes()
		if err == redis.Nil {
			return ErrChallengeNotFound
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &ch); err != nil {
			return err
		}

		accKey := s.keyAccount(ch.AccountId)
		current, err := tx.Get(ctx, accKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}

		if ch.Expired(time.Now()) {
			pipe := tx.TxPipeline()
			pipe.Del(ctx, chKey)
			if current == ch.Id {
				pipe.Del(ctx, accKey)
			}
			if _, pErr := pipe.Exec(ctx); pErr != nil {
				return pErr
			}
			return ErrChallengeExpired
		}
		if ch.RequestingUserId != callerUserId {
			// The record survives so the rightful user can still confirm
			return ErrChallengeForbidden
		}

		pipe := tx.TxPipeline()
		pipe.Del(ctx, chKey)
		if current == ch.Id {
			pipe.Del(ctx, accKey)
		}
		_, pErr := pipe.Exec(ctx)
		return pErr
	}, chKey)

	if err == redis.TxFailedErr {
		// Lost the race against a concurrent consume
		return Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

func (s *RedisStore) Restore(ctx context.Context, ch Challenge) error {

	remaining := time.Until(ch.ExpiresAt)
	if remaining <= 0 {
		return nil
	}

	// Give up if a newer challenge took the account slot meanwhile
	ok, err := s.rdb.SetNX(ctx, s.keyAccount(ch.AccountId), ch.Id, remaining).Result()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	raw, err := json.Marshal(&ch)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyChallenge(ch.Id), raw, remaining).Err()
}
