package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/stockroom-pos/stockroom/internal/inventory"
)

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	ItemStats(ctx context.Context) (count int64, stockValue float64, err error)
	SalesTotals(ctx context.Context, from, to time.Time) (revenue, profit float64, err error)
	PurchaseSpend(ctx context.Context, from, to time.Time) (float64, error)
	LowStockItems(ctx context.Context, threshold int64) ([]inventory.Item, error)
}

// Service serves cached dashboard snapshots. Snapshots live in redis
// under a versioned key; mutations bump the version so the next read
// recomputes instead of waiting out the TTL. Singleflight collapses
// concurrent recomputes of the same range into one database pass.
type Service struct {
	repo      RepositoryPort
	redis     *redis.Client
	ttl       time.Duration
	threshold int64
	group     singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, redisClient *redis.Client, ttl time.Duration, lowStockThreshold int64) *Service {
	return &Service{repo: repo, redis: redisClient, ttl: ttl, threshold: lowStockThreshold}
}

const versionKey = "dashboard:version"

// Bump invalidates all cached snapshots. Called by the sale, purchase
// and adjustment flows after a committed mutation.
func (s *Service) Bump(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Incr(ctx, versionKey).Err()
}

// Summary returns the aggregate snapshot for the inclusive date range,
// from cache when fresh.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	version := s.version(ctx)
	key := fmt.Sprintf("dashboard:v%d:%s:%s", version, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var cached Summary
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		summary, err := s.compute(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if s.redis != nil {
			if data, err := json.Marshal(summary); err == nil {
				_ = s.redis.Set(ctx, key, data, s.ttl).Err()
			}
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	summary, ok := result.(*Summary)
	if !ok {
		return nil, errors.New("dashboard: unexpected cache payload")
	}
	return summary, nil
}

func (s *Service) compute(ctx context.Context, from, to time.Time) (*Summary, error) {
	count, stockValue, err := s.repo.ItemStats(ctx)
	if err != nil {
		return nil, err
	}
	revenue, profit, err := s.repo.SalesTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	spend, err := s.repo.PurchaseSpend(ctx, from, to)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.repo.LowStockItems(ctx, s.threshold)
	if err != nil {
		return nil, err
	}
	return &Summary{
		ItemCount:  count,
		StockValue: inventory.Round2(stockValue),
		Revenue:    inventory.Round2(revenue),
		Profit:     inventory.Round2(profit),
		Spend:      inventory.Round2(spend),
		LowStock:   lowStock,
		From:       from,
		To:         to,
		CachedAt:   time.Now().UTC(),
	}, nil
}

func (s *Service) version(ctx context.Context) int64 {
	if s.redis == nil {
		return 0
	}
	v, err := s.redis.Get(ctx, versionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}
