package state

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairamm/native/amm"
	"pairamm/storage"
)

var (
	alice     = ethcommon.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob       = ethcommon.HexToAddress("0x0000000000000000000000000000000000000b0b")
	vault     = ethcommon.HexToAddress("0x000000000000000000000000000000000000fa17")
	custodian = ethcommon.HexToAddress("0x000000000000000000000000000000000000c057")
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewStore(db)
}

func TestJournalCommitAndDiscard(t *testing.T) {
	store := newTestStore(t)

	discarded := store.Begin()
	require.NoError(t, discarded.KVPut([]byte("k"), uint64(7)))
	discarded.Discard()
	require.ErrorIs(t, discarded.KVPut([]byte("k"), uint64(8)), ErrClosed)

	view := store.Begin()
	var value uint64
	ok, err := view.KVGet([]byte("k"), &value)
	require.NoError(t, err)
	require.False(t, ok, "discarded write must not reach the store")
	view.Discard()

	journal := store.Begin()
	require.NoError(t, journal.KVPut([]byte("k"), uint64(9)))
	ok, err = journal.KVGet([]byte("k"), &value)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9), value, "journal reads its own writes")
	require.NoError(t, journal.Commit())
	require.ErrorIs(t, journal.Commit(), ErrClosed)

	after := store.Begin()
	defer after.Discard()
	ok, err = after.KVGet([]byte("k"), &value)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9), value)
}

func TestJournalDetectsConflicts(t *testing.T) {
	store := newTestStore(t)
	seed := store.Begin()
	require.NoError(t, seed.KVPut([]byte("balance"), uint64(100)))
	require.NoError(t, seed.Commit())

	first := store.Begin()
	second := store.Begin()
	var value uint64
	_, err := first.KVGet([]byte("balance"), &value)
	require.NoError(t, err)
	_, err = second.KVGet([]byte("balance"), &value)
	require.NoError(t, err)

	require.NoError(t, first.KVPut([]byte("balance"), uint64(40)))
	require.NoError(t, second.KVPut([]byte("balance"), uint64(70)))
	require.NoError(t, first.Commit())
	require.ErrorIs(t, second.Commit(), ErrConflict)

	check := store.Begin()
	defer check.Discard()
	_, err = check.KVGet([]byte("balance"), &value)
	require.NoError(t, err)
	require.Equal(t, uint64(40), value)
}

func TestPoolRecordRoundTrip(t *testing.T) {
	store := newTestStore(t)
	journal := store.Begin()

	pool := &amm.Pool{
		ID:              "zd-usd",
		Authority:       alice,
		TokenA:          "ZDELTA",
		TokenB:          "ZUSD",
		VaultA:          vault,
		VaultB:          bob,
		VaultAuthority:  custodian,
		ReserveA:        1_100,
		ReserveB:        910,
		TotalLiquidity:  1_000,
		FeeBps:          100,
		MaxTradeSize:    500,
		MaxSlippageBps:  250,
		DeviationGuard:  true,
		TradingPaused:   true,
		LastVolumeReset: 1_700_000_000,
		TWAPWindow:      900,
		LastTWAPUpdate:  1_700_000_900,
		TWAPA:           827_272,
	}
	pool.PriceCumulativeA.Lsh(uint256.NewInt(1), 200)
	pool.PriceCumulativeB.SetUint64(42)

	require.NoError(t, journal.PutPool(pool))
	require.NoError(t, journal.PutTrader(pool.ID, bob, &amm.TraderRecord{LastTradeTick: 0}))
	require.NoError(t, journal.Commit())

	view := store.Begin()
	defer view.Discard()
	loaded, err := view.GetPool("zd-usd")
	require.NoError(t, err)
	require.Equal(t, *pool, *loaded)

	trader, err := view.GetTrader("zd-usd", bob)
	require.NoError(t, err)
	require.NotNil(t, trader, "a tick-zero record still exists")
	require.Zero(t, trader.LastTradeTick)

	missing, err := view.GetTrader("zd-usd", alice)
	require.NoError(t, err)
	require.Nil(t, missing)
	none, err := view.GetPool("other")
	require.NoError(t, err)
	require.Nil(t, none)

	ids, err := view.PoolIDs()
	require.NoError(t, err)
	require.Equal(t, []string{"zd-usd"}, ids)
}

func TestTokenLedgerTransfers(t *testing.T) {
	store := newTestStore(t)
	m := store.Begin()
	defer m.Discard()

	require.ErrorIs(t, m.Mint("zusd", alice, 10), ErrUnknownToken)
	require.NoError(t, m.RegisterToken("zusd", "Delta USD", 6))
	require.Error(t, m.RegisterToken("ZUSD", "dup", 6))
	require.NoError(t, m.Mint("zusd", alice, 1_000))
	require.NoError(t, m.SetCustodian(vault, custodian))

	require.ErrorIs(t, m.Transfer("ZUSD", alice, vault, bob, 10), ErrTransferNotAuthorised)
	require.NoError(t, m.Transfer("ZUSD", alice, vault, alice, 600))
	require.ErrorIs(t, m.Transfer("ZUSD", alice, vault, alice, 401), ErrInsufficientBalance)

	require.ErrorIs(t, m.Transfer("ZUSD", vault, bob, vault, 10), ErrTransferNotAuthorised,
		"custodial accounts are debited only by their custodian")
	require.NoError(t, m.Transfer("ZUSD", vault, bob, custodian, 100))

	for owner, want := range map[ethcommon.Address]uint64{alice: 400, vault: 500, bob: 100} {
		got, err := m.BalanceOf("zusd", owner)
		require.NoError(t, err)
		require.Equal(t, want, got, owner.Hex())
	}

	tokens, err := m.TokenList()
	require.NoError(t, err)
	require.Equal(t, []string{"ZUSD"}, tokens)
}

func TestDiscardRollsBackTransfers(t *testing.T) {
	store := newTestStore(t)
	setup := store.Begin()
	require.NoError(t, setup.RegisterToken("ZUSD", "Delta USD", 6))
	require.NoError(t, setup.Mint("ZUSD", alice, 50))
	require.NoError(t, setup.Commit())

	failed := store.Begin()
	require.NoError(t, failed.Transfer("ZUSD", alice, bob, alice, 50))
	failed.Discard()

	view := store.Begin()
	defer view.Discard()
	balance, err := view.BalanceOf("ZUSD", alice)
	require.NoError(t, err)
	require.Equal(t, uint64(50), balance)
}
