package risk

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"altbot/internal/domain"
	"altbot/pkg/quant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T, mutate func(*Config)) *Gate {
	t.Helper()
	cfg := DefaultConfig(8, 100)
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := New(cfg)
	require.NoError(t, err)
	return g
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{MaxSymbols: 0})
	assert.Error(t, err)
	_, err = New(Config{MaxSymbols: 1, InitialBudget: -1})
	assert.Error(t, err)
	_, err = New(Config{MaxSymbols: 1, Cooldown: -time.Second})
	assert.Error(t, err)
}

func TestCheck_AcceptChargesBudgetAndCooldown(t *testing.T) {
	g := newGate(t, nil)

	require.Equal(t, Accepted, g.Check(3, 1_000))
	st := g.State()
	assert.Equal(t, int64(99), st.Budget)
	assert.Zero(t, st.OpenIntents, "open intents move only on enqueue")

	last, ok := g.LastAccepted(3)
	require.True(t, ok)
	assert.Equal(t, quant.TsMillis(1_000), last)
}

func TestCheck_BuyDisabledBlocksEverything(t *testing.T) {
	g := newGate(t, func(c *Config) { c.BuyEnabled = false })

	assert.Equal(t, BlockedBuyDisabled, g.Check(0, 60_000))
	assert.Equal(t, int64(100), g.State().Budget)
	_, ok := g.LastAccepted(0)
	assert.False(t, ok, "cooldown untouched when blocked")

	g.SetBuyEnabled(true)
	assert.Equal(t, Accepted, g.Check(0, 60_000))
}

func TestCheck_CooldownScenarioD(t *testing.T) {
	g := newGate(t, nil)

	assert.Equal(t, Accepted, g.Check(1, 10_000))
	assert.Equal(t, BlockedCooldown, g.Check(1, 10_300))
	assert.Equal(t, int64(99), g.State().Budget, "cooldown rejection spends no budget")

	// Other symbols are independent.
	assert.Equal(t, Accepted, g.Check(2, 10_300))
	// The cooldown boundary itself is open.
	assert.Equal(t, Accepted, g.Check(1, 10_500))
}

func TestCheck_OutOfOrderTimestampNeverRewindsCooldown(t *testing.T) {
	g := newGate(t, nil)
	require.Equal(t, Accepted, g.Check(0, 5_000))
	assert.Equal(t, BlockedCooldown, g.Check(0, 1_000))

	last, _ := g.LastAccepted(0)
	assert.Equal(t, quant.TsMillis(5_000), last)
}

func TestCheck_FirstTriggerAtTimeZero(t *testing.T) {
	g := newGate(t, nil)
	assert.Equal(t, Accepted, g.Check(0, 0))
	assert.Equal(t, BlockedCooldown, g.Check(0, 499))
}

func TestCheck_BudgetExhaustion(t *testing.T) {
	g := newGate(t, func(c *Config) { c.InitialBudget = 2; c.Cooldown = 0 })

	assert.Equal(t, Accepted, g.Check(0, 1))
	assert.Equal(t, Accepted, g.Check(0, 2))
	assert.Equal(t, BlockedBudget, g.Check(0, 3))
	assert.Zero(t, g.State().Budget)

	g.Replenish(1)
	g.Replenish(-5)
	assert.Equal(t, Accepted, g.Check(0, 4))
	assert.Equal(t, int64(1), g.State().Replenished)
}

func TestCheck_OpenIntentCeiling(t *testing.T) {
	g := newGate(t, func(c *Config) { c.MaxOpenIntents = 2; c.Cooldown = 0 })

	for i := 0; i < 2; i++ {
		require.Equal(t, Accepted, g.Check(0, quant.TsMillis(i)))
		g.IntentEnqueued()
	}
	assert.Equal(t, BlockedOpenIntents, g.Check(0, 10))

	g.OpenIntentReleased()
	assert.Equal(t, Accepted, g.Check(0, 11))

	require.NoError(t, g.SetMaxOpenIntents(0))
	assert.Equal(t, BlockedOpenIntents, g.Check(0, 12))
	assert.Error(t, g.SetMaxOpenIntents(-1))
}

func TestCheck_OrderAttribution(t *testing.T) {
	// With every gate failing, buy_enabled is reported.
	g := newGate(t, func(c *Config) {
		c.BuyEnabled = false
		c.InitialBudget = 0
		c.MaxOpenIntents = 0
	})
	assert.Equal(t, BlockedBuyDisabled, g.Check(0, 0))
	g.SetBuyEnabled(true)
	assert.Equal(t, BlockedBudget, g.Check(0, 0))
	g.Replenish(1)
	assert.Equal(t, BlockedOpenIntents, g.Check(0, 0))
}

func TestCheck_SymbolOutOfRange(t *testing.T) {
	g := newGate(t, nil)
	v := g.Check(8, 0)
	assert.Equal(t, BlockedSymbol, v)
	assert.Equal(t, domain.OutcomeSymbolRejected, v.Outcome())
}

func TestOpenIntents_Saturate(t *testing.T) {
	g := newGate(t, nil)
	g.OpenIntentReleased()
	assert.False(t, g.CancelIntent())
	assert.Zero(t, g.State().OpenIntents)

	g.IntentEnqueued()
	assert.True(t, g.CancelIntent())
	assert.Zero(t, g.State().OpenIntents)
}

func TestVerdict_Outcome(t *testing.T) {
	assert.Equal(t, domain.OutcomeEnqueued, Accepted.Outcome())
	assert.Equal(t, domain.OutcomeBlockedCooldown, BlockedCooldown.Outcome())
	assert.Equal(t, "blocked_budget", BlockedBudget.String())
	assert.Equal(t, "accepted", Accepted.String())
}

// Cooldown and budget properties over random tick streams.
func TestCheck_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		budget := int64(rng.Intn(40))
		g := newGate(t, func(c *Config) {
			c.InitialBudget = budget
			c.MaxOpenIntents = 1 << 30
		})

		lastAccepted := map[uint32]quant.TsMillis{}
		var accepted, replenished int64
		ts := quant.TsMillis(0)
		for i := 0; i < 500; i++ {
			ts += quant.TsMillis(rng.Intn(200))
			sym := uint32(rng.Intn(8))
			if rng.Intn(50) == 0 {
				g.Replenish(3)
				replenished += 3
			}
			if g.Check(sym, ts) == Accepted {
				if prev, ok := lastAccepted[sym]; ok {
					require.GreaterOrEqual(t, uint64(ts-prev), uint64(500))
				}
				lastAccepted[sym] = ts
				accepted++
			}
			require.GreaterOrEqual(t, g.State().Budget, int64(0))
		}
		require.LessOrEqual(t, accepted, budget+replenished)
	}
}

// External updaters race with the hot path without breaking the budget floor.
func TestGate_ConcurrentControl(t *testing.T) {
	g := newGate(t, func(c *Config) { c.InitialBudget = 50; c.Cooldown = 0; c.MaxOpenIntents = 1 << 30 })

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			g.SetBuyEnabled(i%3 != 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			g.Replenish(1)
		}
	}()

	var accepted int64
	for i := 0; i < 5000; i++ {
		if g.Check(uint32(i%8), quant.TsMillis(i)) == Accepted {
			accepted++
		}
	}
	wg.Wait()
	g.SetBuyEnabled(true)

	assert.LessOrEqual(t, accepted, int64(150))
	assert.Equal(t, int64(150)-accepted, g.State().Budget)
}

func TestCheck_DoesNotAllocate(t *testing.T) {
	g := newGate(t, func(c *Config) { c.InitialBudget = 1 << 40 })
	ts := quant.TsMillis(0)
	allocs := testing.AllocsPerRun(1000, func() {
		ts += 1000
		_ = g.Check(0, ts)
	})
	assert.Zero(t, allocs)
}

func BenchmarkCheck(b *testing.B) {
	g, _ := New(DefaultConfig(1, 1<<62))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Check(0, quant.TsMillis(i)*1000)
	}
}
