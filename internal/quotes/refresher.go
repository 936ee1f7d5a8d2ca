package quotes

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dvloznov/wealthflow/internal/storage"
	"github.com/dvloznov/wealthflow/internal/syncstore"
	"github.com/rs/zerolog"
)

// maxJitter bounds a single simulated price move to ±3%.
const maxJitter = 0.03

// DefaultInterval is the refresh cadence used when none is configured.
const DefaultInterval = 30 * time.Second

// Refresher periodically reprices the attached user's holdings with a small
// random jitter, standing in for a market data feed. Prices are written
// through the sync store so they flow back into the snapshot via the
// subscription push like any other write.
type Refresher struct {
	store    *syncstore.Store
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	rng    *rand.Rand
}

// New creates a refresher ticking at the given interval.
func New(store *syncstore.Store, interval time.Duration, log zerolog.Logger) *Refresher {
	return &Refresher{
		store:    store,
		interval: interval,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins the refresh loop. Calling Start on a running refresher is a
// no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
	r.log.Info().Dur("interval", r.interval).Msg("Quote refresher started")
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info().Msg("Quote refresher stopped")
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce reprices every holding in the current snapshot once. Write
// failures are logged and skipped; the remaining holdings are still
// repriced.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	for _, h := range r.store.Holdings() {
		if h.CurrentPrice <= 0 {
			continue
		}

		r.mu.Lock()
		jitter := (r.rng.Float64()*2 - 1) * maxJitter
		r.mu.Unlock()

		price := h.CurrentPrice * (1 + jitter)
		patch := storage.Document{"currentPrice": price}
		if err := r.store.EditHolding(ctx, h.ID, patch); err != nil {
			r.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to reprice holding")
			continue
		}
	}
}
