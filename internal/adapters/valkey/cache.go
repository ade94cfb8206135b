package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Cache implements ports.CacheService using Valkey (Redis-compatible).
type Cache struct {
	client valkey.Client
}

// New creates a new Valkey cache client.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if cmd.Error() != nil {
		return nil, cmd.Error()
	}
	b, err := cmd.AsBytes()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Set stores a value with a TTL in seconds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	cmd := c.client.Do(ctx,
		c.client.B().Set().Key(key).Value(string(value)).Ex(time.Duration(ttlSeconds)*time.Second).Build(),
	)
	return cmd.Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	cmd := c.client.Do(ctx, c.client.B().Del().Key(key).Build())
	return cmd.Error()
}

// AddToSet adds a member to a set and refreshes the set's TTL. Returns
// true only when the member was newly added, which lets multiple
// processes share an at-most-once guard through SADD's return value.
func (c *Cache) AddToSet(ctx context.Context, key, member string, ttlSeconds int) (bool, error) {
	cmd := c.client.Do(ctx, c.client.B().Sadd().Key(key).Member(member).Build())
	if cmd.Error() != nil {
		return false, cmd.Error()
	}
	added, err := cmd.AsInt64()
	if err != nil {
		return false, err
	}
	exp := c.client.Do(ctx,
		c.client.B().Expire().Key(key).Seconds(int64(ttlSeconds)).Build(),
	)
	if exp.Error() != nil {
		return added > 0, exp.Error()
	}
	return added > 0, nil
}

// RemoveFromSet drops a member from a set.
func (c *Cache) RemoveFromSet(ctx context.Context, key, member string) error {
	cmd := c.client.Do(ctx, c.client.B().Srem().Key(key).Member(member).Build())
	return cmd.Error()
}

// SetMembers returns all members of a set.
func (c *Cache) SetMembers(ctx context.Context, key string) ([]string, error) {
	cmd := c.client.Do(ctx, c.client.B().Smembers().Key(key).Build())
	if cmd.Error() != nil {
		return nil, cmd.Error()
	}
	return cmd.AsStrSlice()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
