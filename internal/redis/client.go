package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix     = "lock:order:"
	proposalPrefix = "payment_proposal:"
)

type Client struct {
	rdb     *redis.Client
	locker  *redislock.Client
	lockTTL time.Duration
}

func Initialize(redisURL string, lockTTL time.Duration) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewClient(rdb, lockTTL), nil
}

func NewClient(rdb *redis.Client, lockTTL time.Duration) *Client {
	return &Client{rdb: rdb, locker: redislock.New(rdb), lockTTL: lockTTL}
}

// Lock serializes work on key across processes. It retries until ctx is done
// (or the lock TTL elapses when ctx has no deadline).
func (c *Client) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := c.locker.Obtain(ctx, lockPrefix+key, c.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if err == redislock.ErrNotObtained {
		return nil, errs.Conflict("lock.obtain", "order %s is being modified, retry", key)
	} else if err != nil {
		return nil, fmt.Errorf("failed to obtain lock for %s: %w", key, err)
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

// SaveProposal stores p until its ExpiresAt.
func (c *Client) SaveProposal(ctx context.Context, p *models.PaymentProposal) error {
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return errs.Validation("proposal.save", "proposal already expired")
	}
	jsonData, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payment proposal: %w", err)
	}
	return c.rdb.Set(ctx, proposalPrefix+p.Token, jsonData, ttl).Err()
}

// TakeProposal reads and deletes the proposal, so a token confirms at most once.
func (c *Client) TakeProposal(ctx context.Context, token string) (*models.PaymentProposal, error) {
	val, err := c.rdb.GetDel(ctx, proposalPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.NotFound("proposal.take", "payment proposal not found or expired")
		}
		return nil, fmt.Errorf("failed to get payment proposal: %w", err)
	}

	var p models.PaymentProposal
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment proposal: %w", err)
	}
	return &p, nil
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
