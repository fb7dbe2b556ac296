package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/i474232898/weather-stats/internal/weather"
)

const redisKeyPrefix = "weather-stats:reports:"

// RedisStore keeps report histories in Redis lists, oldest first.
type RedisStore struct {
	client redis.UniversalClient

	maxHistory int
	maxAge     time.Duration
}

// NewRedisStore connects to the Redis instance at url (redis://[:password@]host:port/db).
func NewRedisStore(ctx context.Context, url string, maxHistory int, maxAge time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis not reachable: %w", err)
	}
	return NewRedisStoreWithClient(client, maxHistory, maxAge), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, maxHistory int, maxAge time.Duration) *RedisStore {
	return &RedisStore{client: client, maxHistory: maxHistory, maxAge: maxAge}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, report weather.StatisticsReport) error {
	data, err := encodeReport(report)
	if err != nil {
		return err
	}

	key := redisKeyPrefix + reportKey(report.Location, report.Variable)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.maxHistory > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
		}
		if s.maxAge > 0 {
			pipe.Expire(ctx, key, s.maxAge)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Latest(ctx context.Context, loc weather.Location, v weather.Variable) (weather.StatisticsReport, error) {
	reports, err := s.load(ctx, loc, v)
	if err != nil {
		return weather.StatisticsReport{}, err
	}
	return reports[len(reports)-1], nil
}

func (s *RedisStore) Range(ctx context.Context, loc weather.Location, v weather.Variable, from, to time.Time) ([]weather.StatisticsReport, error) {
	reports, err := s.load(ctx, loc, v)
	if err != nil {
		return nil, err
	}
	result := filterRange(reports, from, to)
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// load returns the unexpired reports for one key, oldest first.
func (s *RedisStore) load(ctx context.Context, loc weather.Location, v weather.Variable) ([]weather.StatisticsReport, error) {
	key := redisKeyPrefix + reportKey(loc, v)
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load reports %s: %w", key, err)
	}

	var cutoff time.Time
	if s.maxAge > 0 {
		cutoff = time.Now().Add(-s.maxAge)
	}

	reports := make([]weather.StatisticsReport, 0, len(raw))
	for _, item := range raw {
		r, err := decodeReport([]byte(item))
		if err != nil {
			return nil, err
		}
		if r.ComputedAt.Before(cutoff) {
			continue
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports, nil
}

func encodeReport(r weather.StatisticsReport) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

func decodeReport(data []byte) (weather.StatisticsReport, error) {
	var r weather.StatisticsReport
	if err := json.Unmarshal(data, &r); err != nil {
		return weather.StatisticsReport{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
