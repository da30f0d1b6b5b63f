/*
scheduler.go - Low-balance monitor

PURPOSE:
  Periodically checks every account against its advisory minimum and logs
  a warning for each one under it, so the agent knows which float to top
  up before the counter runs dry. The monitor only reads. It never blocks
  or alters an operation.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Logs an account once when it drops under its minimum and once when it
    recovers, not on every tick
  - A failed read is logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Enabled: Whether the monitor is active (default: true)

USAGE:
  monitor := NewLowBalanceMonitor(engine, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: ListLowBalance endpoint (same check on demand)
  - ledger/accounts.go: LowBalance
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agenlink/kasledger/ledger"
	"github.com/agenlink/kasledger/money"
)

// LowBalanceMonitor logs accounts that fall under their minimum balance.
type LowBalanceMonitor struct {
	Engine        *ledger.Engine
	CheckInterval time.Duration
	Enabled       bool

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// accounts currently reported as low
	flagged map[ledger.AccountID]bool
}

// NewLowBalanceMonitor creates a new monitor.
func NewLowBalanceMonitor(engine *ledger.Engine, log *zap.Logger) *LowBalanceMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &LowBalanceMonitor{
		Engine:        engine,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
		log:           log.Named("low-balance"),
		flagged:       make(map[ledger.AccountID]bool),
	}
}

// Start begins the monitor.
func (m *LowBalanceMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled || m.CheckInterval <= 0 {
		m.log.Info("monitor disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.ticker, m.stop)

	m.log.Info("monitor started", zap.Duration("interval", m.CheckInterval))
}

// Stop stops the monitor and waits for a running check to finish.
func (m *LowBalanceMonitor) Stop() {
	m.mu.Lock()
	if m.ticker == nil {
		m.mu.Unlock()
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.ticker = nil
	m.mu.Unlock()

	m.wg.Wait()
	m.log.Info("monitor stopped")
}

func (m *LowBalanceMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	// Run immediately on start
	m.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			m.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and returns the accounts under their minimum.
func (m *LowBalanceMonitor) RunNow(ctx context.Context) []ledger.Account {
	low, err := m.Engine.FindLowBalance(ctx)
	if err != nil {
		m.log.Error("low-balance check failed", zap.Error(err))
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[ledger.AccountID]bool, len(low))
	for _, a := range low {
		current[a.ID] = true
		if m.flagged[a.ID] {
			continue
		}
		m.log.Warn("account under minimum balance",
			zap.String("account", string(a.ID)),
			zap.String("name", a.Name),
			zap.String("balance", money.FormatRupiah(a.Balance)),
			zap.String("minimum", money.FormatRupiah(*a.MinimumBalance)))
	}
	for id := range m.flagged {
		if !current[id] {
			m.log.Info("account back above minimum balance", zap.String("account", string(id)))
		}
	}
	m.flagged = current
	return low
}
