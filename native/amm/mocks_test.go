package amm

import (
	"errors"
	"fmt"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/events"
)

var (
	testAuthority      = makeAddress(0xA0)
	testVaultA         = makeAddress(0xA1)
	testVaultB         = makeAddress(0xB1)
	testVaultAuthority = makeAddress(0xCA)
	testTrader         = makeAddress(0x01)
	testOtherTrader    = makeAddress(0x02)

	errInjectedTransfer = errors.New("injected transfer failure")
)

func makeAddress(b byte) ethcommon.Address {
	var addr ethcommon.Address
	addr[len(addr)-1] = b
	addr[0] = 0x42
	return addr
}

type traderKey struct {
	pool   string
	trader ethcommon.Address
}

type mockState struct {
	pools   map[string]*Pool
	traders map[traderKey]*TraderRecord
	putErr  error
}

func newMockState() *mockState {
	return &mockState{
		pools:   make(map[string]*Pool),
		traders: make(map[traderKey]*TraderRecord),
	}
}

func (m *mockState) GetPool(poolID string) (*Pool, error) {
	pool, ok := m.pools[poolID]
	if !ok {
		return nil, nil
	}
	return pool.Clone(), nil
}

func (m *mockState) PutPool(pool *Pool) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.pools[pool.ID] = pool.Clone()
	return nil
}

func (m *mockState) GetTrader(poolID string, trader ethcommon.Address) (*TraderRecord, error) {
	record, ok := m.traders[traderKey{poolID, trader}]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (m *mockState) PutTrader(poolID string, trader ethcommon.Address, record *TraderRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	clone := *record
	m.traders[traderKey{poolID, trader}] = &clone
	return nil
}

type balanceKey struct {
	token string
	owner ethcommon.Address
}

// mockTransfers is an in-memory ledger. Accounts listed in custodians may be
// debited by their custodian; every other account only by itself.
type mockTransfers struct {
	balances   map[balanceKey]uint64
	custodians map[ethcommon.Address]ethcommon.Address
	failOn     int
	calls      int
}

func newMockTransfers() *mockTransfers {
	return &mockTransfers{
		balances: make(map[balanceKey]uint64),
		custodians: map[ethcommon.Address]ethcommon.Address{
			testVaultA: testVaultAuthority,
			testVaultB: testVaultAuthority,
		},
	}
}

func (m *mockTransfers) fund(token string, owner ethcommon.Address, amount uint64) {
	m.balances[balanceKey{token, owner}] += amount
}

func (m *mockTransfers) balance(token string, owner ethcommon.Address) uint64 {
	return m.balances[balanceKey{token, owner}]
}

func (m *mockTransfers) Transfer(token string, from, to, authority ethcommon.Address, amount uint64) error {
	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return errInjectedTransfer
	}
	if custodian, ok := m.custodians[from]; ok {
		if authority != custodian {
			return fmt.Errorf("authority %s cannot debit %s", authority.Hex(), from.Hex())
		}
	} else if authority != from {
		return fmt.Errorf("authority %s cannot debit %s", authority.Hex(), from.Hex())
	}
	src := balanceKey{token, from}
	if m.balances[src] < amount {
		return fmt.Errorf("insufficient %s balance", token)
	}
	m.balances[src] -= amount
	m.balances[balanceKey{token, to}] += amount
	return nil
}

func (m *mockTransfers) BalanceOf(token string, owner ethcommon.Address) (uint64, error) {
	return m.balances[balanceKey{token, owner}], nil
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

type stubPauseView struct {
	modules map[string]bool
}

func (s stubPauseView) IsPaused(module string) bool {
	return s.modules[module]
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	engine    *Engine
	state     *mockState
	transfers *mockTransfers
	emitter   *recordingEmitter
	clock     *fixedClock
}

func defaultParams() InitParams {
	return InitParams{
		TokenA:           "ZDELTA",
		TokenB:           "ZUSD",
		VaultA:           testVaultA,
		VaultB:           testVaultB,
		VaultAuthority:   testVaultAuthority,
		FeeBps:           100,
		MaxTradeSize:     1_000_000,
		DailyVolumeLimit: 10_000_000,
		MaxSlippageBps:   500,
		MaxDeviationBps:  500,
	}
}

func newHarness(t *testing.T, params InitParams) *harness {
	t.Helper()
	h := &harness{
		state:     newMockState(),
		transfers: newMockTransfers(),
		emitter:   &recordingEmitter{},
		clock:     &fixedClock{now: time.Unix(1_700_000_000, 0)},
	}
	h.engine = NewEngine("zd-usd", h.state, h.transfers)
	h.engine.SetEmitter(h.emitter)
	h.engine.SetClock(h.clock.Now)
	h.engine.SetTick(1)
	if _, err := h.engine.Initialize(testAuthority, params); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, trader := range []ethcommon.Address{testTrader, testOtherTrader} {
		h.transfers.fund(params.TokenA, trader, 1<<40)
		h.transfers.fund(params.TokenB, trader, 1<<40)
	}
	return h
}

// seeded returns a harness whose pool holds reserveA/reserveB from a first
// deposit by testOtherTrader.
func seeded(t *testing.T, params InitParams, reserveA, reserveB uint64) *harness {
	t.Helper()
	h := newHarness(t, params)
	if _, err := h.engine.AddLiquidity(testOtherTrader, reserveA, reserveB, 0); err != nil {
		t.Fatalf("seed liquidity: %v", err)
	}
	return h
}

func (h *harness) pool(t *testing.T) *Pool {
	t.Helper()
	pool, err := h.engine.Pool()
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	return pool
}
