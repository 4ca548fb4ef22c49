package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stockflow-hq/stockflow/internal/platform/cache"
)

// SourcePort is the query surface the service aggregates over.
type SourcePort interface {
	SalesLines(ctx context.Context, from, to time.Time) ([]SalesLine, error)
	PurchaseLines(ctx context.Context, from, to time.Time) ([]PurchaseLine, error)
	StockLines(ctx context.Context, lowOnly bool) ([]StockLine, error)
}

// Service builds reports, serving from the cache when possible and
// collapsing concurrent builds of the same report into one query.
type Service struct {
	source SourcePort
	cache  *cache.Store
	group  singleflight.Group
}

// NewService constructs Service. cache may be nil; reports then always hit
// the database.
func NewService(source SourcePort, cacheStore *cache.Store) *Service {
	return &Service{source: source, cache: cacheStore}
}

func rangeKey(name string, from, to time.Time) string {
	return fmt.Sprintf("reports:%s:%d:%d", name, from.Unix(), to.Unix())
}

// build runs fn under the singleflight group with a cache lookaside.
func (s *Service) build(ctx context.Context, key string, dest any, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := s.cache.GetJSON(ctx, key, dest); err == nil {
		return dest, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		report, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetJSON(ctx, key, report)
		return report, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Sales builds the sales report for an optional date range.
func (s *Service) Sales(ctx context.Context, from, to time.Time) (SalesReport, error) {
	var cached SalesReport
	result, err := s.build(ctx, rangeKey("sales", from, to), &cached, func(ctx context.Context) (any, error) {
		lines, err := s.source.SalesLines(ctx, from, to)
		if err != nil {
			return nil, err
		}
		revenue, discount := sumSales(lines)
		return SalesReport{From: from, To: to, Lines: lines, TotalRevenue: revenue, TotalDiscount: discount}, nil
	})
	if err != nil {
		return SalesReport{}, err
	}
	if report, ok := result.(SalesReport); ok {
		return report, nil
	}
	return cached, nil
}

// Purchases builds the purchases report for an optional date range.
func (s *Service) Purchases(ctx context.Context, from, to time.Time) (PurchasesReport, error) {
	var cached PurchasesReport
	result, err := s.build(ctx, rangeKey("purchases", from, to), &cached, func(ctx context.Context) (any, error) {
		lines, err := s.source.PurchaseLines(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return PurchasesReport{From: from, To: to, Lines: lines, TotalCost: sumPurchases(lines)}, nil
	})
	if err != nil {
		return PurchasesReport{}, err
	}
	if report, ok := result.(PurchasesReport); ok {
		return report, nil
	}
	return cached, nil
}

// Stock builds the stock snapshot report. Stock levels move constantly so
// the snapshot is never cached.
func (s *Service) Stock(ctx context.Context, lowOnly bool) (StockReport, error) {
	lines, err := s.source.StockLines(ctx, lowOnly)
	if err != nil {
		return StockReport{}, err
	}
	return StockReport{GeneratedAt: time.Now().UTC(), Lines: lines, LowStockOnly: lowOnly}, nil
}
