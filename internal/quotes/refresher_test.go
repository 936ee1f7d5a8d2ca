package quotes

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage/inmemory"
	"github.com/dvloznov/wealthflow/internal/syncstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshOnce_JittersWithinBounds(t *testing.T) {
	ctx := context.Background()
	db := inmemory.NewStore()
	store := syncstore.New(db, zerolog.Nop())
	require.NoError(t, store.Attach(ctx, "u1"))
	defer store.Detach()

	_, err := store.CreateHolding(ctx, domain.Holding{
		Symbol: "2330", Name: "TSMC", Market: "TWSE",
		Quantity: 1000, AvgPrice: 500, CurrentPrice: 980,
	})
	require.NoError(t, err)

	r := New(store, time.Minute, zerolog.Nop())
	r.RefreshOnce(ctx)

	holdings := store.Holdings()
	require.Len(t, holdings, 1)
	got := holdings[0].CurrentPrice
	assert.InDelta(t, 980, got, 980*maxJitter+1e-9, "price must stay within the jitter bound")
	assert.Greater(t, got, 0.0)
}

func TestRefreshOnce_SkipsZeroPricedHoldings(t *testing.T) {
	ctx := context.Background()
	db := inmemory.NewStore()
	store := syncstore.New(db, zerolog.Nop())
	require.NoError(t, store.Attach(ctx, "u1"))
	defer store.Detach()

	_, err := store.CreateHolding(ctx, domain.Holding{
		Symbol: "NEW", Name: "Unpriced", Market: "NYSE",
		Quantity: 10, AvgPrice: 0, CurrentPrice: 0,
	})
	require.NoError(t, err)

	r := New(store, time.Minute, zerolog.Nop())
	r.RefreshOnce(ctx)

	assert.Equal(t, 0.0, store.Holdings()[0].CurrentPrice)
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	db := inmemory.NewStore()
	store := syncstore.New(db, zerolog.Nop())
	require.NoError(t, store.Attach(ctx, "u1"))
	defer store.Detach()

	_, err := store.CreateHolding(ctx, domain.Holding{
		Symbol: "AAPL", Name: "Apple Inc.", Market: "NASDAQ",
		Quantity: 50, AvgPrice: 150, CurrentPrice: 175,
	})
	require.NoError(t, err)

	r := New(store, 5*time.Millisecond, zerolog.Nop())
	r.Start(ctx)
	r.Start(ctx) // second Start is a no-op

	deadline := time.After(2 * time.Second)
	for {
		price := store.Holdings()[0].CurrentPrice
		if math.Abs(price-175) > 1e-9 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("price never changed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	r.Stop()
	r.Stop() // second Stop is a no-op
}
