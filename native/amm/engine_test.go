package amm

import (
	"errors"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/events"
	nativecommon "pairamm/native/common"
)

func TestInitializeDefaults(t *testing.T) {
	h := newHarness(t, defaultParams())
	pool := h.pool(t)
	if pool.TWAPWindow != DefaultTWAPWindowSeconds {
		t.Fatalf("expected default window, got %d", pool.TWAPWindow)
	}
	now := h.clock.Now().Unix()
	if pool.LastTWAPUpdate != now || pool.LastVolumeReset != now {
		t.Fatalf("timestamps not anchored at initialisation")
	}
	if pool.Authority != testAuthority || pool.HasLiquidity() {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	if len(h.emitter.events) != 1 || h.emitter.events[0].EventType() != events.TypePoolInitialized {
		t.Fatalf("expected initialised event, got %+v", h.emitter.events)
	}
}

func TestInitializeValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*InitParams)
		want   error
	}{
		{"fee too high", func(p *InitParams) { p.FeeBps = MaxFeeBps + 1 }, ErrFeeTooHigh},
		{"slippage too high", func(p *InitParams) { p.MaxSlippageBps = MaxSlippageBps + 1 }, ErrSlippageTooHigh},
		{"deviation too high", func(p *InitParams) { p.MaxDeviationBps = 10_001 }, ErrInvalidParameter},
		{"same token", func(p *InitParams) { p.TokenB = "zdelta" }, ErrInvalidParameter},
		{"missing token", func(p *InitParams) { p.TokenA = " " }, ErrInvalidParameter},
		{"shared vault", func(p *InitParams) { p.VaultB = p.VaultA }, ErrInvalidParameter},
		{"zero vault authority", func(p *InitParams) { p.VaultAuthority = ethcommon.Address{} }, ErrInvalidParameter},
		{"negative window", func(p *InitParams) { p.TWAPWindow = -1 }, ErrInvalidParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultParams()
			tc.mutate(&params)
			engine := NewEngine("p", newMockState(), newMockTransfers())
			_, err := engine.Initialize(testAuthority, params)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if KindOf(err) != KindValidation {
				t.Fatalf("expected validation kind, got %s", KindOf(err))
			}
		})
	}
}

func TestInitializeTwice(t *testing.T) {
	h := newHarness(t, defaultParams())
	if _, err := h.engine.Initialize(testAuthority, defaultParams()); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
}

func TestEngineRequiresState(t *testing.T) {
	var engine *Engine
	if _, err := engine.Pool(); err == nil {
		t.Fatalf("expected error from nil engine")
	}
	if _, err := NewEngine(" ", newMockState(), nil).Status(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for blank pool id, got %v", err)
	}
}

func TestPauseResumeAuthorisation(t *testing.T) {
	h := seeded(t, defaultParams(), 1000, 1000)

	if err := h.engine.Pause(testTrader); !errors.Is(err, ErrUnauthorised) {
		t.Fatalf("expected ErrUnauthorised, got %v", err)
	}
	if err := h.engine.Pause(testAuthority); err != nil {
		t.Fatalf("pause: %v", err)
	}
	status, err := h.engine.Status()
	if err != nil || !status.TradingPaused {
		t.Fatalf("expected paused status, got %+v (%v)", status, err)
	}
	if status.ReserveA != 1000 || status.ReserveB != 1000 {
		t.Fatalf("pause must not touch reserves: %+v", status)
	}
	last := h.emitter.events[len(h.emitter.events)-1]
	if paused, ok := last.(events.TradingPaused); !ok || paused.Authority != testAuthority {
		t.Fatalf("unexpected event %+v", last)
	}

	emitted := len(h.emitter.events)
	if err := h.engine.Pause(testAuthority); err != nil {
		t.Fatalf("repeat pause: %v", err)
	}
	if len(h.emitter.events) != emitted+1 {
		t.Fatalf("repeat pause should emit again")
	}
	if _, ok := h.emitter.events[emitted].(events.TradingPaused); !ok || !h.pool(t).TradingPaused {
		t.Fatalf("repeat pause must keep the pool paused")
	}

	if err := h.engine.Resume(testAuthority); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if h.pool(t).TradingPaused {
		t.Fatalf("expected trading resumed")
	}
	if _, err := h.engine.Swap(testTrader, 100, 0, DirectionAToB); err != nil {
		t.Fatalf("swap after resume: %v", err)
	}
}

type authorityFunc func(scope string, caller ethcommon.Address) bool

func (f authorityFunc) IsAuthority(scope string, caller ethcommon.Address) bool { return f(scope, caller) }

func TestAuthorityViewOverridesPoolAuthority(t *testing.T) {
	h := newHarness(t, defaultParams())
	guardian := makeAddress(0xEE)
	var scopes []string
	h.engine.SetAuthority(authorityFunc(func(scope string, caller ethcommon.Address) bool {
		scopes = append(scopes, scope)
		return caller == guardian
	}))

	if err := h.engine.Pause(testAuthority); !errors.Is(err, nativecommon.ErrUnauthorised) {
		t.Fatalf("expected view to reject pool authority, got %v", err)
	}
	if KindOf(nativecommon.ErrUnauthorised) != KindAuthorisation {
		t.Fatalf("unexpected kind")
	}
	if err := h.engine.Pause(guardian); err != nil {
		t.Fatalf("guardian pause: %v", err)
	}
	if len(scopes) != 2 || scopes[0] != "amm/zd-usd" {
		t.Fatalf("unexpected scopes: %v", scopes)
	}
}

func TestUpdateParameters(t *testing.T) {
	h := seeded(t, defaultParams(), 1000, 1000)
	before := h.pool(t)

	tradeSize := uint64(42)
	slippage := uint16(250)
	pool, err := h.engine.UpdateParameters(testAuthority, ParamUpdate{
		MaxTradeSize:   &tradeSize,
		MaxSlippageBps: &slippage,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if pool.MaxTradeSize != 42 || pool.MaxSlippageBps != 250 {
		t.Fatalf("fields not applied: %+v", pool)
	}
	if pool.DailyVolumeLimit != before.DailyVolumeLimit || pool.MaxDeviationBps != before.MaxDeviationBps {
		t.Fatalf("unset fields changed")
	}
	if pool.ReserveA != before.ReserveA || pool.ReserveB != before.ReserveB || pool.FeeBps != before.FeeBps {
		t.Fatalf("update touched reserves or fee")
	}
	last := h.emitter.events[len(h.emitter.events)-1]
	if updated, ok := last.(events.ParametersUpdated); !ok || updated.MaxTradeSize != 42 {
		t.Fatalf("unexpected event %+v", last)
	}

	if _, err := h.engine.Swap(testTrader, 43, 0, DirectionAToB); !errors.Is(err, ErrTradeSizeTooLarge) {
		t.Fatalf("new trade size not enforced: %v", err)
	}
}

func TestUpdateParametersValidation(t *testing.T) {
	h := seeded(t, defaultParams(), 1000, 1000)
	before := h.pool(t)

	tooHigh := uint16(MaxSlippageBps + 1)
	if _, err := h.engine.UpdateParameters(testAuthority, ParamUpdate{MaxSlippageBps: &tooHigh}); !errors.Is(err, ErrSlippageTooHigh) {
		t.Fatalf("expected ErrSlippageTooHigh, got %v", err)
	}
	deviation := uint16(10_001)
	if _, err := h.engine.UpdateParameters(testAuthority, ParamUpdate{MaxDeviationBps: &deviation}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	limit := uint64(1)
	if _, err := h.engine.UpdateParameters(testTrader, ParamUpdate{DailyVolumeLimit: &limit}); !errors.Is(err, ErrUnauthorised) {
		t.Fatalf("expected ErrUnauthorised, got %v", err)
	}
	if after := h.pool(t); *after != *before {
		t.Fatalf("rejected updates mutated pool")
	}
}

func TestUpdateParametersEmptyIsNoOp(t *testing.T) {
	h := seeded(t, defaultParams(), 1000, 1000)
	before := h.pool(t)
	emitted := len(h.emitter.events)

	pool, err := h.engine.UpdateParameters(testAuthority, ParamUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if *pool != *before || *h.pool(t) != *before {
		t.Fatalf("empty update changed the pool")
	}
	if len(h.emitter.events) != emitted {
		t.Fatalf("empty update should not emit")
	}
	if _, err := h.engine.UpdateParameters(testTrader, ParamUpdate{}); !errors.Is(err, ErrUnauthorised) {
		t.Fatalf("empty update still requires authority, got %v", err)
	}
}
