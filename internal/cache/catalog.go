package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Entity string

const (
	EntityPlatform        Entity = "platform"
	EntityMentor          Entity = "mentor"
	EntityRecordedSession Entity = "recorded_session"
)

var ErrUnknownEntity = errors.New("unknown catalog entity")

func ParseEntity(value string) (Entity, error) {
	switch Entity(value) {
	case EntityPlatform, EntityMentor, EntityRecordedSession:
		return Entity(value), nil
	default:
		return "", ErrUnknownEntity
	}
}

type catalogStore interface {
	GetPlatform(ctx context.Context, id int64) (*models.Platform, error)
	GetMentor(ctx context.Context, id int64) (*models.Mentor, error)
	GetRecordedSession(ctx context.Context, id int64) (*models.RecordedSession, error)
}

type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Catalog is a read-through cache over the catalog tables. Keys embed a
// per-entity generation so Invalidate drops every key of one entity type at
// once. A nil redis client turns it into a passthrough.
type Catalog struct {
	store catalogStore
	rdb   redisStore
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCatalog(store catalogStore, rdb redisStore, ttl time.Duration, log zerolog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{
		store: store,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "catalog_cache").Logger(),
	}
}

func (c *Catalog) GetPlatform(ctx context.Context, id int64) (*models.Platform, error) {
	return readThrough(ctx, c, EntityPlatform, id, c.store.GetPlatform)
}

func (c *Catalog) GetMentor(ctx context.Context, id int64) (*models.Mentor, error) {
	return readThrough(ctx, c, EntityMentor, id, c.store.GetMentor)
}

func (c *Catalog) GetRecordedSession(ctx context.Context, id int64) (*models.RecordedSession, error) {
	return readThrough(ctx, c, EntityRecordedSession, id, c.store.GetRecordedSession)
}

func (c *Catalog) Invalidate(ctx context.Context, entity Entity) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Incr(ctx, generationKey(entity)).Err(); err != nil {
		return fmt.Errorf("invalidate %s cache: %w", entity, err)
	}
	c.log.Info().Str("entity", string(entity)).Msg("catalog cache invalidated")
	return nil
}

func readThrough[T any](
	ctx context.Context,
	c *Catalog,
	entity Entity,
	id int64,
	load func(ctx context.Context, id int64) (*T, error),
) (*T, error) {
	if c.rdb == nil {
		return load(ctx, id)
	}

	key, err := c.key(ctx, entity, id)
	if err != nil {
		c.log.Warn().Err(err).Str("entity", string(entity)).Msg("catalog cache unavailable")
		return load(ctx, id)
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if err := sonic.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		c.log.Warn().Str("key", key).Msg("discarding undecodable catalog entry")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}

	value, err := load(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, err := sonic.Marshal(value)
	if err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
		}
	}
	return value, nil
}

func (c *Catalog) key(ctx context.Context, entity Entity, id int64) (string, error) {
	generation, err := c.rdb.Get(ctx, generationKey(entity)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return "catalog:" + string(entity) + ":g" + strconv.FormatInt(generation, 10) + ":" + strconv.FormatInt(id, 10), nil
}

func generationKey(entity Entity) string {
	return "catalog:" + string(entity) + ":generation"
}
