package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// DefaultIdentityTTL bounds how long a principal snapshot can outlive a
// missed invalidation.
const DefaultIdentityTTL = 30 * time.Second

// generationTTL keeps a subject's invalidation counter alive well past any
// snapshot TTL; losing it only widens the window back to one snapshot TTL.
const generationTTL = 24 * time.Hour

// IdentityCache stores principal snapshots backed by Redis.
// Key format: identity:<subject> for the snapshot, identity:gen:<subject> for
// the invalidation generation.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdentityCache wraps client. A non-positive ttl selects DefaultIdentityTTL.
func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = DefaultIdentityTTL
	}
	return &IdentityCache{client: client, ttl: ttl}
}

type cachedPrincipal struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	Locked  bool   `json:"locked"`
}

// Get returns the cached principal, or ok=false on a miss. gen is the
// subject's current generation either way.
func (c *IdentityCache) Get(ctx context.Context, subject string) (*domain.Principal, int64, bool, error) {
	vals, err := c.client.MGet(ctx, c.key(subject), c.genKey(subject)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("identity cache get: %w", err)
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var cp cachedPrincipal
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return nil, 0, false, fmt.Errorf("identity cache decode: %w", err)
	}
	role, valid := domain.ParseRole(cp.Role)
	if !valid || cp.Subject != subject {
		return nil, 0, false, fmt.Errorf("identity cache: corrupt entry for %q", subject)
	}
	return &domain.Principal{Subject: cp.Subject, Role: role, Locked: cp.Locked}, gen, true, nil
}

// Set stores p for the cache TTL unless the subject's generation has moved
// past gen. A skipped write is not an error.
func (c *IdentityCache) Set(ctx context.Context, p *domain.Principal, gen int64) error {
	raw, err := json.Marshal(cachedPrincipal{Subject: p.Subject, Role: string(p.Role), Locked: p.Locked})
	if err != nil {
		return fmt.Errorf("identity cache encode: %w", err)
	}

	genKey := c.genKey(p.Subject)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(p.Subject), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("identity cache set: %w", err)
	}
	return nil
}

// Delete drops the entry for subject and advances its generation so that
// snapshots read before this call are never stored.
func (c *IdentityCache) Delete(ctx context.Context, subject string) error {
	genKey := c.genKey(subject)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, c.key(subject))
		return nil
	})
	if err != nil {
		return fmt.Errorf("identity cache delete: %w", err)
	}
	return nil
}

var errStaleGeneration = errors.New("identity cache: generation moved")

func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identity cache: corrupt generation %q", s)
	}
	return gen, nil
}

func (c *IdentityCache) key(subject string) string {
	return fmt.Sprintf("identity:%s", subject)
}

func (c *IdentityCache) genKey(subject string) string {
	return fmt.Sprintf("identity:gen:%s", subject)
}
