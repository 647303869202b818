package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

const directoryKeyPrefix = "directory:username:"

// Directory resolves usernames to member ids. Positive lookups are cached
// in Redis when a cache is configured; cache failures never fail a lookup.
type Directory struct {
	members repository.MemberRepository
	cache   redis.Cmdable
	ttl     time.Duration
	logger  *zap.Logger
}

// NewDirectory creates a Directory. A nil cache or a zero ttl disables caching.
func NewDirectory(members repository.MemberRepository, cache redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Directory {
	if ttl <= 0 {
		cache = nil
	}

	return &Directory{
		members: members,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// ResolveIDs maps usernames to member ids, keeping order. It fails as a
// whole with ErrInvalidBorrowers when the list is empty or any name is
// unknown; no partial result is ever returned.
func (d *Directory) ResolveIDs(ctx context.Context, usernames []string) ([]string, error) {
	if len(usernames) == 0 {
		return nil, customError.WrapInvalidBorrowers("borrowers must be a non-empty list")
	}

	ids := d.cachedIDs(ctx, usernames)
	fresh := make(map[string]string)

	for i, name := range usernames {
		if ids[i] != "" {
			continue
		}

		member, err := d.members.GetByUsername(ctx, name)
		if errors.Is(err, customError.ErrMemberNotFound) {
			return nil, customError.WrapInvalidBorrowers(fmt.Sprintf("unknown member %q", name))
		}
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}

		ids[i] = member.ID
		fresh[name] = member.ID
	}

	d.storeIDs(ctx, fresh)

	return ids, nil
}

func (d *Directory) cachedIDs(ctx context.Context, usernames []string) []string {
	ids := make([]string, len(usernames))
	if d.cache == nil {
		return ids
	}

	keys := make([]string, len(usernames))
	for i, name := range usernames {
		keys[i] = directoryKeyPrefix + name
	}

	values, err := d.cache.MGet(ctx, keys...).Result()
	if err != nil {
		d.logger.Warn("directory cache read failed", zap.Error(customError.WrapCacheError(err)))
		return ids
	}

	for i, v := range values {
		if s, ok := v.(string); ok {
			ids[i] = s
		}
	}

	return ids
}

func (d *Directory) storeIDs(ctx context.Context, fresh map[string]string) {
	if d.cache == nil || len(fresh) == 0 {
		return
	}

	_, err := d.cache.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for name, id := range fresh {
			pipe.Set(ctx, directoryKeyPrefix+name, id, d.ttl)
		}
		return nil
	})
	if err != nil {
		d.logger.Warn("directory cache write failed", zap.Error(customError.WrapCacheError(err)))
	}
}
