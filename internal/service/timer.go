package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisrepo "github.com/freeeve/hexfront/internal/repository/redis"
)

// TimerListener listens for Redis keyspace notifications on expired timer keys
// and ends the player's turn when a game's deadline passes. Also runs a
// polling fallback to catch expirations if keyspace notifications are unavailable.
type TimerListener struct {
	rdb      *redis.Client // optional
	svc      *GameService
	interval time.Duration
}

// NewTimerListener creates a TimerListener. rdb may be nil, in which case
// only the poller runs.
func NewTimerListener(rdb *redis.Client, svc *GameService) *TimerListener {
	return &TimerListener{rdb: rdb, svc: svc, interval: 10 * time.Second}
}

// Start begins listening for expired key events and runs a polling fallback.
// It blocks until ctx is done.
func (t *TimerListener) Start(ctx context.Context) {
	if t.rdb != nil {
		go t.listenKeyspace(ctx)
	}
	t.pollExpiredTurns(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// pollExpiredTurns periodically checks for turns past their deadline.
func (t *TimerListener) pollExpiredTurns(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.interval).Msg("Turn deadline poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Turn deadline poller stopped")
			return
		case now := <-ticker.C:
			t.checkExpired(ctx, now)
		}
	}
}

func (t *TimerListener) checkExpired(ctx context.Context, now time.Time) {
	ids := t.svc.ExpiredGames(now)
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("Poller found expired turns")
	}
	for _, id := range ids {
		if err := t.svc.ExpireTurn(ctx, id); err != nil {
			log.Error().Err(err).Str("gameId", id).Msg("Ending expired turn failed from poller")
		}
	}
}

// handleExpiry processes an expired key. Only acts on game timer keys.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	gameID, ok := redisrepo.TimerKeyGameID(key)
	if !ok {
		return
	}
	log.Info().Str("gameId", gameID).Msg("Timer expired, ending turn")
	if err := t.svc.ExpireTurn(ctx, gameID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Ending turn failed after timer expiry")
	}
}
