package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const generationKey = "search:gen"

// NewRedisClient connects to the server described by url and verifies the
// connection. The returned func closes the client.
func NewRedisClient(ctx context.Context, url string, log zerolog.Logger) (*goredis.Client, func(), error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 50 * time.Millisecond
	opts.MaxRetryBackoff = 2 * time.Second
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 5 * time.Second
	opts.MinIdleConns = 1
	opts.ConnMaxIdleTime = time.Minute

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("close redis client")
		}
	}, nil
}

// RedisCache stores phrase results in Redis. Keys embed a generation
// number; Invalidate bumps it so stale entries are never read again and
// expire on their own.
type RedisCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisCache returns a cache whose entries live for ttl.
func NewRedisCache(client *goredis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) key(ctx context.Context, phrase string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("read generation: %w", err)
	}
	return fmt.Sprintf("search:%d:%s", gen, strings.ToLower(phrase)), nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, phrase string) (Entry, error) {
	key, err := c.key(ctx, phrase)
	if err != nil {
		return Entry{}, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Entry{Key: key}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	results, err := decodeResults(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return Entry{Key: key, Hit: true, Results: results}, nil
}

// Set implements Cache. The key carries the generation read by Get.
func (c *RedisCache) Set(ctx context.Context, entry Entry, results []Result) error {
	if entry.Key == "" {
		return errors.New("set: entry has no key")
	}
	raw, err := encodeResults(results)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entry.Key, err)
	}
	if err := c.client.Set(ctx, entry.Key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", entry.Key, err)
	}
	return nil
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}

// encodeResults stores results as a protobuf ListValue of their JSON form.
func encodeResults(results []Result) ([]byte, error) {
	doc, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	var items []any
	if err := json.Unmarshal(doc, &items); err != nil {
		return nil, err
	}
	list, err := structpb.NewList(items)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(list)
}

func decodeResults(raw []byte) ([]Result, error) {
	var list structpb.ListValue
	if err := proto.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(list.AsSlice())
	if err != nil {
		return nil, err
	}
	results := []Result{}
	if err := json.Unmarshal(doc, &results); err != nil {
		return nil, err
	}
	return results, nil
}
