package amm

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
)

func TestRefreshTWAPAccumulatesWithinWindow(t *testing.T) {
	pool := &Pool{ReserveA: 1_000, ReserveB: 2_000, TWAPWindow: 900}

	if err := pool.refreshTWAP(100); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pool.PriceCumulativeA.Uint64() != 2_000_000*100 || pool.PriceCumulativeB.Uint64() != 500_000*100 {
		t.Fatalf("unexpected cumulatives: %s/%s", pool.PriceCumulativeA.Dec(), pool.PriceCumulativeB.Dec())
	}
	if pool.TWAPA != 0 || pool.LastTWAPUpdate != 0 {
		t.Fatalf("twap published before the window closed")
	}
}

func TestRefreshTWAPPublishesAndResets(t *testing.T) {
	pool := &Pool{ReserveA: 1_000, ReserveB: 2_000, TWAPWindow: 900}
	if err := pool.refreshTWAP(100); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := pool.refreshTWAP(900); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// Each sample spans the time since the last publish, so the two samples
	// together weigh 1000s against a 900s divisor.
	if pool.TWAPA != 2_222_222 || pool.TWAPB != 555_555 {
		t.Fatalf("unexpected twap: %d/%d", pool.TWAPA, pool.TWAPB)
	}
	if !pool.PriceCumulativeA.IsZero() || !pool.PriceCumulativeB.IsZero() {
		t.Fatalf("cumulatives not reset")
	}
	if pool.LastTWAPUpdate != 900 {
		t.Fatalf("expected publish time 900, got %d", pool.LastTWAPUpdate)
	}
}

func TestRefreshTWAPNoOps(t *testing.T) {
	pool := &Pool{ReserveA: 1_000, ReserveB: 2_000, TWAPWindow: 900, LastTWAPUpdate: 500}
	snapshot := *pool
	if err := pool.refreshTWAP(500); err != nil || *pool != snapshot {
		t.Fatalf("zero elapsed must be a no-op")
	}
	if err := pool.refreshTWAP(400); err != nil || *pool != snapshot {
		t.Fatalf("negative elapsed must be a no-op")
	}
	empty := &Pool{ReserveA: 0, ReserveB: 2_000, TWAPWindow: 900}
	emptySnapshot := *empty
	if err := empty.refreshTWAP(10_000); err != nil || *empty != emptySnapshot {
		t.Fatalf("empty reserve must be a no-op")
	}
}

func TestRefreshTWAPOverflowLeavesPool(t *testing.T) {
	pool := &Pool{ReserveA: 1_000, ReserveB: 2_000, TWAPWindow: 900}
	pool.PriceCumulativeA.SetAllOne()
	snapshot := *pool
	if err := pool.refreshTWAP(10); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if *pool != snapshot {
		t.Fatalf("overflowing refresh mutated pool")
	}
}

func TestTWAPStableWithoutActivity(t *testing.T) {
	h := seeded(t, defaultParams(), 1_000_000, 2_000_000)
	h.clock.Advance(time.Hour)
	if _, err := h.engine.Swap(testTrader, 1_000, 0, DirectionAToB); err != nil {
		t.Fatalf("swap: %v", err)
	}
	first, err := h.engine.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if first.TWAPA == 0 || first.TWAPB == 0 {
		t.Fatalf("expected published twap, got %+v", first)
	}

	for i := 0; i < 5; i++ {
		h.clock.Advance(30 * 24 * time.Hour)
		status, err := h.engine.Status()
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.TWAPA != first.TWAPA || status.TWAPB != first.TWAPB || status.LastTWAPUpdate != first.LastTWAPUpdate {
			t.Fatalf("twap drifted without activity: %+v vs %+v", status, first)
		}
	}
	if _, err := h.engine.QuoteSwap(1_000, DirectionBToA); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if after, _ := h.engine.Status(); after.TWAPA != first.TWAPA {
		t.Fatalf("quotes must not advance the twap")
	}
}

func TestAccumulateOverflow(t *testing.T) {
	ceiling := new(uint256.Int).SetAllOne()
	if _, err := accumulate(new(uint256.Int), ceiling, uint256.NewInt(2)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected multiplication overflow, got %v", err)
	}
	if _, err := accumulate(ceiling, uint256.NewInt(1), uint256.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected addition overflow, got %v", err)
	}
	sum, err := accumulate(uint256.NewInt(5), uint256.NewInt(3), uint256.NewInt(4))
	if err != nil || sum.Uint64() != 17 {
		t.Fatalf("unexpected sum %v (%v)", sum, err)
	}
}
