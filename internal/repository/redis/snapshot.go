package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for live session data.
func snapshotKey(gameID string) string { return "game:" + gameID + ":snapshot" }
func timerKey(gameID string) string    { return "game:" + gameID + ":timer" }

// TimerKeyGameID extracts the game id from an expired timer key.
func TimerKeyGameID(key string) (string, bool) {
	const prefix, suffix = "game:", ":timer"
	if len(key) <= len(prefix)+len(suffix) || key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
		return "", false
	}
	return key[len(prefix) : len(key)-len(suffix)], true
}

// SetSnapshot stores the placement snapshot of a live board.
func (c *Client) SetSnapshot(ctx context.Context, gameID string, snapshot json.RawMessage) error {
	return c.rdb.Set(ctx, snapshotKey(gameID), []byte(snapshot), 0).Err()
}

// GetSnapshot retrieves a placement snapshot, or nil if none is stored.
func (c *Client) GetSnapshot(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// turnGracePeriod is the extra time after the displayed deadline before the
// turn is ended on the player's behalf.
const turnGracePeriod = 2 * time.Second

// SetTimer creates a timer key with a TTL. When the key expires, keyspace
// notifications end the player's turn.
func (c *Client) SetTimer(ctx context.Context, gameID string, deadline time.Time) error {
	ttl := time.Until(deadline) + turnGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(gameID), deadline.Unix(), ttl).Err()
}

// ClearTimer removes the timer for a game.
func (c *Client) ClearTimer(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, timerKey(gameID)).Err()
}

// DeleteGameData removes all Redis data for a game (on game end).
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, snapshotKey(gameID), timerKey(gameID)).Err()
}
