package events

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLocalBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewLocalBus()
	var got []string

	bus.Subscribe(func(_ context.Context, ev Event) { got = append(got, "first:"+string(ev.Kind)) })
	bus.Subscribe(func(_ context.Context, ev Event) { got = append(got, "second:"+string(ev.Kind)) })

	require.NoError(t, bus.Publish(context.Background(), New(KindSaleCreated)))
	assert.Equal(t, []string{"first:sale.created", "second:sale.created"}, got)
}

func TestLocalBusCancelStopsDelivery(t *testing.T) {
	bus := NewLocalBus()
	calls := 0
	cancel := bus.Subscribe(func(context.Context, Event) { calls++ })

	_ = bus.Publish(context.Background(), New(KindProductChanged))
	cancel()
	cancel()
	_ = bus.Publish(context.Background(), New(KindProductChanged))

	assert.Equal(t, 1, calls)
}

func TestOnlyFiltersKinds(t *testing.T) {
	bus := NewLocalBus()
	var seen []Kind
	bus.Subscribe(Only(func(_ context.Context, ev Event) { seen = append(seen, ev.Kind) }, KindSaleCreated, KindSaleDeleted))

	for _, kind := range []Kind{KindSaleCreated, KindReposicaoChanged, KindSaleDeleted} {
		_ = bus.Publish(context.Background(), New(kind))
	}
	assert.Equal(t, []Kind{KindSaleCreated, KindSaleDeleted}, seen)
}

func TestRedisBusFansOutPublishedEvents(t *testing.T) {
	addr := os.Getenv("ESTOQUE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set ESTOQUE_TEST_REDIS_ADDR to run redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	bus := NewRedisBus(client, fmt.Sprintf("estoque-test-%d", time.Now().UnixNano()), zaptest.NewLogger(t))
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan Kind, 1)
	bus.Subscribe(Only(func(_ context.Context, ev Event) { received <- ev.Kind }, KindSaleDeleted))

	require.NoError(t, bus.Publish(ctx, New(KindSaleDeleted)))
	select {
	case kind := <-received:
		assert.Equal(t, KindSaleDeleted, kind)
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}
}
