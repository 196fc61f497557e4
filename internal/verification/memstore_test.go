package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ch, err := store.Create(ctx, "puuid-1", 12, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ch.Id == "" {
		t.Fatalf("expected a non-empty challenge id")
	}

	got, err := store.Consume(ctx, ch.Id, "user-1")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.AccountId != "puuid-1" || got.RequestedIconId != 12 {
		t.Fatalf("unexpected challenge: %+v", got)
	}

	// Second consume fails regardless of who calls
	if _, err := store.Consume(ctx, ch.Id, "user-1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
	if _, err := store.Consume(ctx, ch.Id, "user-2"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound for other user, got %v", err)
	}
}

func TestMemoryStoreForbiddenKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ch, err := store.Create(ctx, "puuid-1", 12, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.Consume(ctx, ch.Id, "intruder"); !errors.Is(err, ErrChallengeForbidden) {
		t.Fatalf("expected ErrChallengeForbidden, got %v", err)
	}

	// The rightful user can still confirm
	if _, err := store.Consume(ctx, ch.Id, "user-1"); err != nil {
		t.Fatalf("rightful consume after forbidden attempt: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ch, err := store.Create(ctx, "puuid-1", 12, "user-1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := store.Consume(ctx, ch.Id, "user-1"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	// Detecting expiry removed the record
	if _, err := store.Consume(ctx, ch.Id, "user-1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after expiry, got %v", err)
	}
}

func TestMemoryStoreOneChallengePerAccount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Create(ctx, "puuid-1", 12, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := store.Create(ctx, "puuid-1", 13, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.Consume(ctx, first.Id, "user-1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected superseded challenge to be gone, got %v", err)
	}
	if _, err := store.Consume(ctx, second.Id, "user-1"); err != nil {
		t.Fatalf("consume of the new challenge: %v", err)
	}
}

func TestMemoryStoreRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ch, err := store.Create(ctx, "puuid-1", 12, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	consumed, err := store.Consume(ctx, ch.Id, "user-1")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if err := store.Restore(ctx, consumed); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := store.Consume(ctx, ch.Id, "user-1")
	if err != nil {
		t.Fatalf("consume after restore: %v", err)
	}
	if !restored.ExpiresAt.Equal(consumed.ExpiresAt) {
		t.Fatalf("restore changed the expiry: %v vs %v", restored.ExpiresAt, consumed.ExpiresAt)
	}
}

func TestMemoryStoreRestoreDoesNotClobberNewerChallenge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	old, err := store.Create(ctx, "puuid-1", 12, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	consumed, err := store.Consume(ctx, old.Id, "user-1")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	newer, err := store.Create(ctx, "puuid-1", 20, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Restore(ctx, consumed); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := store.Consume(ctx, old.Id, "user-1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the restored challenge to yield to the newer one, got %v", err)
	}
	if _, err := store.Consume(ctx, newer.Id, "user-1"); err != nil {
		t.Fatalf("consume of the newer challenge: %v", err)
	}
}

func TestMemoryStoreRacingConsumes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ch, err := store.Create(ctx, "puuid-1", 12, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, ch.Id, "user-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("unexpected error from racing consume: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", successes)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Create(ctx, "puuid-1", 12, "user-1", 10*time.Millisecond); err != nil {
		t.Fatalf("Create: %v", err)
	}
	keep, err := store.Create(ctx, "puuid-2", 13, "user-2", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if swept := store.Sweep(); swept != 1 {
		t.Fatalf("expected 1 swept challenge, got %d", swept)
	}
	if _, err := store.Consume(ctx, keep.Id, "user-2"); err != nil {
		t.Fatalf("the live challenge should survive the sweep: %v", err)
	}
}
