package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Analysis struct {
	Allowed bool          // If the request is allowed
	Wait    time.Duration // The minimal time to wait before the request is allowed
}

// RateLimiter guards all the outgoing requests to the provider.
// It enforces the windowed restrictions the provider publishes,
// a cap on concurrent requests, a minimum spacing between requests,
// and a cooldown after the provider reports a rate limit.
// It is shared by every caller in the process
type RateLimiter struct {
	mu           sync.Mutex
	restrictions []Restriction // Restrictions to consider
	history      []time.Time   // History of requests
	window       time.Duration // Longest restriction window, used to trim the history
	minSpacing   time.Duration
	lastRequest  time.Time
	slots        chan struct{} // Concurrency cap
	cooldown     Stopwatch     // Started when the provider reports a rate limit
}

func NewRateLimiter(restrictions []Restriction, maxConcurrent int, minSpacing time.Duration, cooldown time.Duration) *RateLimiter {

	rl := RateLimiter{}
	rl.restrictions = append(rl.restrictions, restrictions...)
	for _, restriction := range restrictions {
		if restriction.Duration > rl.window {
			rl.window = restriction.Duration
		}
	}
	rl.minSpacing = minSpacing
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	rl.slots = make(chan struct{}, maxConcurrent)
	rl.cooldown = NewStopwatch(cooldown)

	return &rl
}

// Acquire blocks until the request is allowed to go out.
// It returns a release function that has to be called when the
// request completes, and fails right away if the provider has
// recently reported a rate limit or the context is cancelled
func (rl *RateLimiter) Acquire(ctx context.Context) (func(), error) {

	// Give this request a unique identifier
	requestId := uuid.New()

	// Take a concurrency slot first
	select {
	case rl.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-rl.slots }

	for {
		rl.mu.Lock()

		// Respect the cooldown after a reported rate limit
		if stopped, _ := rl.cooldown.Stopped(); !stopped {
			rl.mu.Unlock()
			release()
			log.Warn().Msg(fmt.Sprintf("Rejecting request %s: provider cooldown is active", requestId))
			return nil, ErrRateLimited
		}

		rl.trim()
		analysis := rl.analyse()
		wait := analysis.Wait
		if spacing := rl.minSpacing - time.Since(rl.lastRequest); spacing > wait {
			wait = spacing
		}
		if analysis.Allowed && wait <= 0 {
			// Include this request in the history as it is allowed
			now := time.Now()
			rl.history = append(rl.history, now)
			rl.lastRequest = now
			rl.mu.Unlock()
			return release, nil
		}
		rl.mu.Unlock()

		log.Debug().Msg(fmt.Sprintf("Request %s delayed %.2f seconds", requestId, wait.Seconds()))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			release()
			return nil, ctx.Err()
		}
	}
}

// ReceivedRateLimit has to be called when the provider answers
// with a rate limit response. Requests fail until the cooldown lifts
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cooldown.Start()
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim() {
	currentTime := time.Now()
	// Find the index from which we need to keep the history.
	// Start searching at the end of the slice.
	// Times are stored in chronological order
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) > rl.window {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse() Analysis {

	// Merge the analyses of all the restrictions
	merged := Analysis{Allowed: true}
	for i := range rl.restrictions {
		analysis := rl.restrictions[i].Analyse(rl.history)
		merged.Allowed = merged.Allowed && analysis.Allowed
		if analysis.Wait > merged.Wait {
			merged.Wait = analysis.Wait
		}
	}
	return merged
}
