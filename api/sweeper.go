/*
sweeper.go - Automated pool rollover sweeper

PURPOSE:
  Periodically checks every company pool and rolls lapsed ones into the
  current month. Pool reads already treat the period correctly (a lapsed
  pool is never reported as exhausted), so the sweeper is a tidiness
  mechanism, not a correctness requirement; the reset endpoint remains the
  explicit trigger.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips pools whose period is still current
  - Safe to run concurrently with consumption: ResetPeriod is idempotent
    per calendar month and version-guarded

USAGE:
  sweeper := NewRolloverSweeper(store, manager)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: ResetPool endpoint (manual rollover)
  - pool/pool.go: Manager.ResetPeriod
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
	"github.com/techizeBuilder/Decision-Maker-sub003/pool"
)

// RolloverSweeper rolls lapsed pools into the current month.
type RolloverSweeper struct {
	Pools         engine.PoolStore
	Manager       *pool.Manager
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverSweeper creates a new sweeper.
func NewRolloverSweeper(pools engine.PoolStore, manager *pool.Manager) *RolloverSweeper {
	return &RolloverSweeper{
		Pools:         pools,
		Manager:       manager,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (rs *RolloverSweeper) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Sweeper] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the sweeper.
func (rs *RolloverSweeper) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (rs *RolloverSweeper) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverSweeper) sweep() {
	ctx := context.Background()
	now := time.Now().UTC()
	current := engine.PeriodOf(now)

	pools, err := rs.Pools.Pools(ctx)
	if err != nil {
		log.Printf("[Sweeper] Error listing pools: %v", err)
		return
	}

	rolled := 0
	for _, p := range pools {
		if !p.Period.Before(current) {
			continue
		}
		if _, err := rs.Manager.ResetPeriod(ctx, p.CompanyDomain); err != nil {
			log.Printf("[Sweeper] Error rolling pool %s: %v", p.CompanyDomain, err)
			continue
		}
		rolled++
	}

	if rolled > 0 {
		log.Printf("[Sweeper] Rolled %d pool(s) into %s", rolled, current)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (rs *RolloverSweeper) RunNow() {
	rs.sweep()
}
