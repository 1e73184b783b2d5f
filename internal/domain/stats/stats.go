// Package stats aggregates the dashboard figures shown on the admin home
// screen. Numbers come straight from the domain repositories; an optional
// cache keeps the dashboard cheap under polling.
package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grainly/storefront/internal/domain/blog"
	"github.com/grainly/storefront/internal/domain/cart"
	"github.com/grainly/storefront/internal/domain/catalog"
	"github.com/grainly/storefront/internal/domain/order"
)

const (
	cacheKey = "stats:dashboard"
	cacheTTL = 30 * time.Second
)

// Dashboard is the aggregate snapshot rendered by the admin overview.
// TotalRevenue sums paid-side orders only; failed payments are excluded.
type Dashboard struct {
	TotalProducts int64         `json:"totalProducts"`
	TotalOrders   int64         `json:"totalOrders"`
	TotalBlogs    int64         `json:"totalBlogs"`
	ActiveCarts   int64         `json:"activeCarts"`
	TotalRevenue  float64       `json:"totalRevenue"`
	PendingOrders int64         `json:"pendingOrders"`
	RecentOrders  []order.Order `json:"recentOrders"`
}

// Service computes dashboard aggregates.
type Service struct {
	products catalog.Repository
	orders   order.Repository
	blogs    blog.Repository
	carts    cart.Repository
	cache    redis.UniversalClient
}

// NewService creates a stats Service. cache may be nil, in which case every
// call recomputes from the repositories.
func NewService(
	products catalog.Repository,
	orders order.Repository,
	blogs blog.Repository,
	carts cart.Repository,
	cache redis.UniversalClient,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		blogs:    blogs,
		carts:    carts,
		cache:    cache,
	}
}

// Dashboard returns the aggregate snapshot, serving a cached copy when one is
// fresh. Cache failures fall through to a live computation.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var d Dashboard
			if json.Unmarshal(raw, &d) == nil {
				return &d, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			zctx.From(ctx).Warn("stats cache read failed", zap.Error(err))
		}
	}

	d, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
				zctx.From(ctx).Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return d, nil
}

func (s *Service) compute(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}

	var err error
	if d.TotalProducts, err = s.products.Count(ctx); err != nil {
		return nil, errors.Wrap(err, "count products")
	}
	if d.TotalOrders, err = s.orders.Count(ctx); err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	if d.TotalBlogs, err = s.blogs.Count(ctx); err != nil {
		return nil, errors.Wrap(err, "count blogs")
	}
	if d.ActiveCarts, err = s.carts.Count(ctx); err != nil {
		return nil, errors.Wrap(err, "count carts")
	}
	if d.TotalRevenue, err = s.orders.Revenue(ctx); err != nil {
		return nil, errors.Wrap(err, "sum revenue")
	}
	if d.PendingOrders, err = s.orders.CountByStatus(ctx, order.StatusPending); err != nil {
		return nil, errors.Wrap(err, "count pending orders")
	}
	if d.RecentOrders, err = s.orders.Recent(ctx, 5); err != nil {
		return nil, errors.Wrap(err, "list recent orders")
	}
	if d.RecentOrders == nil {
		d.RecentOrders = []order.Order{}
	}
	return d, nil
}
