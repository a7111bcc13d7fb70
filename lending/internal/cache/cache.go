package cache

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/model"
)

type Config struct {
	Enabled  bool          `yaml:"enabled" envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `yaml:"ttl" envconfig:"REDIS_TTL" default:"5m"`
}

func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

// BookCache is a read-through cache of book rows. A nil *BookCache is valid
// and behaves as an always-missing cache.
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewBookCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *BookCache {
	return &BookCache{
		client: client,
		ttl:    ttl,
		log:    log.Named("cache"),
	}
}

func bookKey(id int) string {
	return fmt.Sprintf("book:%d", id)
}

func (c *BookCache) Get(ctx context.Context, id int) (model.Book, bool) {
	if c == nil || c.client == nil {
		return model.Book{}, false
	}
	data, err := c.client.Get(ctx, bookKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("get", zap.Int("book_id", id), zap.Error(err))
		}
		return model.Book{}, false
	}
	var book model.Book
	if err = jsoniter.ConfigFastest.Unmarshal(data, &book); err != nil {
		c.log.Warn("decode", zap.Int("book_id", id), zap.Error(err))
		return model.Book{}, false
	}
	return book, true
}

func (c *BookCache) Set(ctx context.Context, book model.Book) {
	if c == nil || c.client == nil {
		return
	}
	data, err := jsoniter.ConfigFastest.Marshal(book)
	if err != nil {
		c.log.Warn("encode", zap.Int("book_id", book.ID), zap.Error(err))
		return
	}
	if err = c.client.Set(ctx, bookKey(book.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn("set", zap.Int("book_id", book.ID), zap.Error(err))
	}
}

func (c *BookCache) Invalidate(ctx context.Context, ids ...int) {
	if c == nil || c.client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, bookKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("invalidate", zap.Ints("book_ids", ids), zap.Error(err))
	}
}
