package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agenlink/kasledger/ledger"
)

func TestLowBalanceMonitor_LogsTransitionsOnce(t *testing.T) {
	// GIVEN: The default kiosk with the drawer drained under its minimum
	// WHEN: The monitor checks twice, then the drawer is topped up
	// THEN: One warning on entry, none on the repeat, one info on recovery

	s := newTestServer(t)
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	monitor := NewLowBalanceMonitor(s.engine, zap.New(core))

	_, err := s.engine.ApplyInternalTransfer(ctx, ledger.TransferRequest{
		SourceID: s.ids["cash"], DestinationID: s.ids["bri"], Amount: 2000000,
	})
	require.NoError(t, err)

	low := monitor.RunNow(ctx)
	require.Len(t, low, 1)
	monitor.RunNow(ctx)

	warnings := logs.FilterMessage("account under minimum balance").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Rp 500.000", warnings[0].ContextMap()["balance"])

	_, err = s.engine.ApplyCapitalInjection(ctx, s.ids["cash"], 1000000, "")
	require.NoError(t, err)
	assert.Empty(t, monitor.RunNow(ctx))
	assert.Equal(t, 1, logs.FilterMessage("account back above minimum balance").Len())
}

func TestLowBalanceMonitor_StartStop(t *testing.T) {
	s := newTestServer(t)
	core, logs := observer.New(zapcore.InfoLevel)
	monitor := NewLowBalanceMonitor(s.engine, zap.New(core))
	monitor.CheckInterval = time.Hour

	monitor.Start()
	monitor.Start()
	monitor.Stop()
	monitor.Stop()

	assert.Equal(t, 1, logs.FilterMessage("monitor started").Len())
	assert.Equal(t, 1, logs.FilterMessage("monitor stopped").Len())
}

func TestLowBalanceMonitor_Disabled(t *testing.T) {
	s := newTestServer(t)
	monitor := NewLowBalanceMonitor(s.engine, nil)
	monitor.Enabled = false

	monitor.Start()
	monitor.Stop()
}
