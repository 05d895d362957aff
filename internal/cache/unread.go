package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	unreadPrefix     = "unread:"
	generationPrefix = "unread:gen:"
)

// UnreadCache holds per-user unread totals. Entries are dropped on every
// change and rebuilt from the store on the next read. Every drop also bumps a
// per-user generation; a total is only written back when the generation it
// was computed under is still current.
type UnreadCache struct {
	cli *redis.Client
	ttl time.Duration
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func NewUnreadCache(cli *redis.Client, ttl time.Duration) *UnreadCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UnreadCache{cli: cli, ttl: ttl}
}

// Get reports ok=false on a miss.
func (c *UnreadCache) Get(ctx context.Context, userID string) (int, bool, error) {
	s, err := c.cli.Get(ctx, unreadPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// Generation returns the user's current generation. Read it before loading
// the total from the store and pass it to SetAt.
func (c *UnreadCache) Generation(ctx context.Context, userID string) (int64, error) {
	g, err := c.cli.Get(ctx, generationPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

// SetAt stores n unless the user was invalidated after gen was read. It
// reports whether the value was written.
func (c *UnreadCache) SetAt(ctx context.Context, userID string, n int, gen int64) (bool, error) {
	genKey := generationPrefix + userID
	written := false
	err := c.cli.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, unreadPrefix+userID, n, c.ttl)
			return nil
		})
		if err == nil {
			written = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return written, err
}

func (c *UnreadCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range userIDs {
			p.Incr(ctx, generationPrefix+id)
			p.Del(ctx, unreadPrefix+id)
		}
		return nil
	})
	return err
}
