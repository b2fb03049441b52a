// Package locker serializes booking commits per room and date. The
// availability check and the insert are separate steps; holding the lock
// while re-running the calculator closes the race between them.
package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another commit holds the room/date lock.
var ErrLockHeld = errors.New("room is locked by another booking in progress")

// releaseScript deletes the key only if we still own it, so an expired
// lock reacquired by someone else is never released from here.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RoomLocker acquires short-lived per-room/date locks in Redis.
type RoomLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomLocker creates a locker. ttl bounds how long a crashed holder can
// block a room; it should comfortably exceed one booking commit.
func NewRoomLocker(client *redis.Client, ttl time.Duration) *RoomLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RoomLocker{client: client, ttl: ttl}
}

// Lock is a held room/date lock.
type Lock struct {
	locker *RoomLocker
	key    string
	token  string
}

func lockKey(roomID int64, date time.Time) string {
	return fmt.Sprintf("booking_lock:%d:%s", roomID, date.Format("2006-01-02"))
}

// Acquire takes the lock for the room and date, or returns ErrLockHeld.
func (l *RoomLocker) Acquire(ctx context.Context, roomID int64, date time.Time) (*Lock, error) {
	key := lockKey(roomID, date)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{locker: l, key: key, token: token}, nil
}

// Release frees the lock if it is still ours.
func (lk *Lock) Release(ctx context.Context) error {
	err := lk.locker.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", lk.key, err)
	}
	return nil
}
