package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoicing_backend/internal/catalog/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type countingFinder struct {
	products map[string]repository.Product
	calls    int
	err      error
}

func (f *countingFinder) FindByKey(_ context.Context, _ uuid.UUID, key string) (repository.Product, error) {
	f.calls++
	if f.err != nil {
		return repository.Product{}, f.err
	}
	p, ok := f.products[key]
	if !ok {
		return repository.Product{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func newTestCache(t *testing.T, next Finder) (*CachedFinder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedFinder(next, rdb, time.Minute, logger.Nop()), mr
}

func TestCachedFinder_ReadsThrough(t *testing.T) {
	tenantID := uuid.New()
	next := &countingFinder{products: map[string]repository.Product{
		"WIDGET": {ID: uuid.New(), TenantID: tenantID, ProductKey: "WIDGET", Cost: decimal.RequireFromString("9.99"), Notes: "A widget"},
	}}
	cache, _ := newTestCache(t, next)

	for i := 0; i < 3; i++ {
		p, err := cache.FindByKey(context.Background(), tenantID, "WIDGET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Cost.Equal(decimal.RequireFromString("9.99")) || p.Notes != "A widget" || p.TenantID != tenantID {
			t.Fatalf("unexpected product: %+v", p)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one database lookup, got %d", next.calls)
	}
}

func TestCachedFinder_CachesMisses(t *testing.T) {
	next := &countingFinder{products: map[string]repository.Product{}}
	cache, _ := newTestCache(t, next)
	tenantID := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := cache.FindByKey(context.Background(), tenantID, "NOPE")
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one database lookup, got %d", next.calls)
	}
}

func TestCachedFinder_DoesNotCacheStoreErrors(t *testing.T) {
	next := &countingFinder{err: errors.New("connection refused")}
	cache, mr := newTestCache(t, next)
	tenantID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := cache.FindByKey(context.Background(), tenantID, "WIDGET"); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected every lookup to reach the store, got %d", next.calls)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected nothing cached, got %v", mr.Keys())
	}
}

func TestCachedFinder_FallsBackWhenRedisIsDown(t *testing.T) {
	tenantID := uuid.New()
	next := &countingFinder{products: map[string]repository.Product{
		"WIDGET": {ProductKey: "WIDGET", Cost: decimal.NewFromInt(5)},
	}}
	cache, mr := newTestCache(t, next)
	mr.Close()

	p, err := cache.FindByKey(context.Background(), tenantID, "WIDGET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProductKey != "WIDGET" {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestCachedFinder_Invalidate(t *testing.T) {
	tenantID := uuid.New()
	next := &countingFinder{products: map[string]repository.Product{"WIDGET": {ProductKey: "WIDGET"}}}
	cache, _ := newTestCache(t, next)
	ctx := context.Background()

	_, _ = cache.FindByKey(ctx, tenantID, "WIDGET")
	if err := cache.Invalidate(ctx, tenantID, "WIDGET"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.FindByKey(ctx, tenantID, "WIDGET")
	if next.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d lookups", next.calls)
	}
}
