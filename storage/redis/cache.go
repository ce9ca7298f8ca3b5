// Package rediscache backs the gate's principal cache with redis so that
// multiple instances share invalidations.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

const keyPrefix = "principal:"

// Open connects to the configured redis instance.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type principalCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ auth.PrincipalCache = (*principalCache)(nil)

// NewPrincipalCache returns a redis-backed auth.PrincipalCache. Entries expire
// at the staleness bound: anything older is useless even as a fallback.
func NewPrincipalCache(client *redis.Client, conf *core.Config) auth.PrincipalCache {
	return &principalCache{client: client, ttl: conf.Auth.PrincipalStaleBound}
}

func (c *principalCache) Get(ctx context.Context, subjectID string) (auth.CachedPrincipal, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+subjectID).Bytes()
	if err == redis.Nil {
		return auth.CachedPrincipal{}, false, nil
	}
	if err != nil {
		return auth.CachedPrincipal{}, false, errors.Wrap(err, "reading cached principal")
	}

	var cached auth.CachedPrincipal
	if err = json.Unmarshal(data, &cached); err != nil {
		return auth.CachedPrincipal{}, false, errors.Wrap(err, "decoding cached principal")
	}
	return cached, true, nil
}

func (c *principalCache) Set(ctx context.Context, cached auth.CachedPrincipal) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return errors.Wrap(err, "encoding cached principal")
	}
	err = c.client.Set(ctx, keyPrefix+cached.Principal.SubjectID, data, c.ttl).Err()
	return errors.Wrap(err, "writing cached principal")
}

func (c *principalCache) Delete(ctx context.Context, subjectID string) error {
	err := c.client.Del(ctx, keyPrefix+subjectID).Err()
	return errors.Wrap(err, "deleting cached principal")
}
