package events

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func TestSwapExecutedEvent(t *testing.T) {
	trader := ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa")
	evt := SwapExecuted{
		PoolID:    " zd-usd ",
		Trader:    trader,
		AmountIn:  100,
		AmountOut: 90,
		Fee:       1,
		Direction: "a_to_b",
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeSwapExecuted {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["poolId"] != "zd-usd" {
		t.Fatalf("unexpected pool attr: %q", evt.Attributes["poolId"])
	}
	if evt.Attributes["trader"] != trader.Hex() {
		t.Fatalf("unexpected trader attr: %s", evt.Attributes["trader"])
	}
	if evt.Attributes["amountIn"] != "100" || evt.Attributes["amountOut"] != "90" || evt.Attributes["fee"] != "1" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["direction"] != "a_to_b" {
		t.Fatalf("unexpected direction: %s", evt.Attributes["direction"])
	}
}

func TestPoolInitializedNormalisesTokens(t *testing.T) {
	evt := PoolInitialized{PoolID: "p", TokenA: " zdelta ", TokenB: "zusd", FeeBps: 30}.Event()
	if evt.Attributes["tokenA"] != "ZDELTA" || evt.Attributes["tokenB"] != "ZUSD" {
		t.Fatalf("unexpected tokens: %+v", evt.Attributes)
	}
	if evt.Attributes["authority"] != "" {
		t.Fatalf("zero authority should render empty, got %q", evt.Attributes["authority"])
	}
	if evt.Attribute("feeBps") != "30" {
		t.Fatalf("unexpected fee attr: %s", evt.Attribute("feeBps"))
	}
}

func TestBufferFlushPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(TradingPaused{PoolID: "p"})
	buf.Emit(TradingResumed{PoolID: "p"})
	var seen []string
	flushed := buf.Flush(EmitterFunc(func(evt Event) {
		seen = append(seen, evt.EventType())
	}))
	if len(flushed) != 2 || len(seen) != 2 {
		t.Fatalf("expected 2 flushed events, got %d/%d", len(flushed), len(seen))
	}
	if seen[0] != TypeTradingPaused || seen[1] != TypeTradingResumed {
		t.Fatalf("unexpected order: %v", seen)
	}
	if again := buf.Flush(nil); len(again) != 0 {
		t.Fatalf("buffer not drained")
	}
}

func TestBufferIgnoresNilEvents(t *testing.T) {
	var buf Buffer
	buf.Emit(nil)
	var nilBuf *Buffer
	nilBuf.Emit(LiquidityAdded{PoolID: "p"})
	if flushed := nilBuf.Flush(nil); flushed != nil {
		t.Fatalf("nil buffer must flush nothing")
	}
	if flushed := buf.Flush(nil); len(flushed) != 0 {
		t.Fatalf("nil event must not be buffered, got %d", len(flushed))
	}
}

type plainEvent struct{}

func (plainEvent) EventType() string { return "plain" }

func TestRecordsSkipsNonRecordable(t *testing.T) {
	records := Records([]Event{plainEvent{}, TradingPaused{PoolID: "p"}})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Type != TypeTradingPaused {
		t.Fatalf("unexpected record type: %s", records[0].Type)
	}
}
