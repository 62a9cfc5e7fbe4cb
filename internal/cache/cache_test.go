package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
)

func TestNoopSummaryCacheAlwaysMisses(t *testing.T) {
	c := NoopSummaryCache{}
	ctx := context.Background()
	summary := &domain.SalesSummary{TotalSold: decimal.NewFromInt(10)}
	if err := c.Set(ctx, "k", summary, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, ok, err := c.Get(ctx, "k"); err != nil || ok || got != nil {
		t.Fatalf("expected miss, got %v %v %v", got, ok, err)
	}
}

func TestRedisSummaryCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("ESTOQUE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set ESTOQUE_TEST_REDIS_ADDR to run redis integration test")
	}
	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	c := NewRedisSummaryCache(client, fmt.Sprintf("estoque-test-%d:", time.Now().UnixNano()))
	want := &domain.SalesSummary{
		TotalSold:    decimal.RequireFromString("159.8"),
		TotalCost:    decimal.RequireFromString("99.8"),
		GrossProfit:  decimal.RequireFromString("60"),
		ProfitMargin: decimal.RequireFromString("37.55"),
	}
	if err := c.Set(ctx, "sales:summary", want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, "sales:summary")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !got.TotalSold.Equal(want.TotalSold) || !got.ProfitMargin.Equal(want.ProfitMargin) {
		t.Fatalf("unexpected summary %+v", got)
	}

	if err := c.Invalidate(ctx, "sales:summary"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "sales:summary"); ok {
		t.Fatalf("expected miss after invalidation")
	}
}
