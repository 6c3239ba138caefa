package state

import (
	"fmt"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairamm/native/amm"
)

// poolRecord is the RLP layout of amm.Pool. RLP has no signed integers, so
// timestamps and the window are stored as their unsigned bit patterns.
type poolRecord struct {
	ID               string
	Authority        ethcommon.Address
	TokenA           string
	TokenB           string
	VaultA           ethcommon.Address
	VaultB           ethcommon.Address
	VaultAuthority   ethcommon.Address
	ReserveA         uint64
	ReserveB         uint64
	TotalLiquidity   uint64
	FeeBps           uint16
	MaxTradeSize     uint64
	DailyVolumeLimit uint64
	MaxSlippageBps   uint16
	MaxDeviationBps  uint16
	DeviationGuard   bool
	TradingPaused    bool
	DailyVolume      uint64
	LastVolumeReset  uint64
	TWAPWindow       uint64
	PriceCumulativeA *big.Int
	PriceCumulativeB *big.Int
	LastTWAPUpdate   uint64
	TWAPA            uint64
	TWAPB            uint64
}

type traderRecord struct {
	LastTradeTick uint64
}

func newPoolRecord(p *amm.Pool) *poolRecord {
	return &poolRecord{
		ID:               p.ID,
		Authority:        p.Authority,
		TokenA:           p.TokenA,
		TokenB:           p.TokenB,
		VaultA:           p.VaultA,
		VaultB:           p.VaultB,
		VaultAuthority:   p.VaultAuthority,
		ReserveA:         p.ReserveA,
		ReserveB:         p.ReserveB,
		TotalLiquidity:   p.TotalLiquidity,
		FeeBps:           p.FeeBps,
		MaxTradeSize:     p.MaxTradeSize,
		DailyVolumeLimit: p.DailyVolumeLimit,
		MaxSlippageBps:   p.MaxSlippageBps,
		MaxDeviationBps:  p.MaxDeviationBps,
		DeviationGuard:   p.DeviationGuard,
		TradingPaused:    p.TradingPaused,
		DailyVolume:      p.DailyVolume,
		LastVolumeReset:  uint64(p.LastVolumeReset),
		TWAPWindow:       uint64(p.TWAPWindow),
		PriceCumulativeA: p.PriceCumulativeA.ToBig(),
		PriceCumulativeB: p.PriceCumulativeB.ToBig(),
		LastTWAPUpdate:   uint64(p.LastTWAPUpdate),
		TWAPA:            p.TWAPA,
		TWAPB:            p.TWAPB,
	}
}

func (r *poolRecord) pool() (*amm.Pool, error) {
	pool := &amm.Pool{
		ID:               r.ID,
		Authority:        r.Authority,
		TokenA:           r.TokenA,
		TokenB:           r.TokenB,
		VaultA:           r.VaultA,
		VaultB:           r.VaultB,
		VaultAuthority:   r.VaultAuthority,
		ReserveA:         r.ReserveA,
		ReserveB:         r.ReserveB,
		TotalLiquidity:   r.TotalLiquidity,
		FeeBps:           r.FeeBps,
		MaxTradeSize:     r.MaxTradeSize,
		DailyVolumeLimit: r.DailyVolumeLimit,
		MaxSlippageBps:   r.MaxSlippageBps,
		MaxDeviationBps:  r.MaxDeviationBps,
		DeviationGuard:   r.DeviationGuard,
		TradingPaused:    r.TradingPaused,
		DailyVolume:      r.DailyVolume,
		LastVolumeReset:  int64(r.LastVolumeReset),
		TWAPWindow:       int64(r.TWAPWindow),
		LastTWAPUpdate:   int64(r.LastTWAPUpdate),
		TWAPA:            r.TWAPA,
		TWAPB:            r.TWAPB,
	}
	if err := setWide(&pool.PriceCumulativeA, r.PriceCumulativeA); err != nil {
		return nil, fmt.Errorf("pool %s: cumulative a: %w", r.ID, err)
	}
	if err := setWide(&pool.PriceCumulativeB, r.PriceCumulativeB); err != nil {
		return nil, fmt.Errorf("pool %s: cumulative b: %w", r.ID, err)
	}
	return pool, nil
}

func setWide(dst *uint256.Int, src *big.Int) error {
	if src == nil {
		dst.Clear()
		return nil
	}
	if overflow := dst.SetFromBig(src); overflow {
		return fmt.Errorf("value exceeds 256 bits")
	}
	return nil
}

// GetPool implements amm.State.
func (m *Manager) GetPool(poolID string) (*amm.Pool, error) {
	var record poolRecord
	ok, err := m.KVGet(AMMPoolKey(poolID), &record)
	if err != nil || !ok {
		return nil, err
	}
	return record.pool()
}

// PutPool implements amm.State and indexes new pools.
func (m *Manager) PutPool(pool *amm.Pool) error {
	if pool == nil || strings.TrimSpace(pool.ID) == "" {
		return fmt.Errorf("state: pool id required")
	}
	if err := m.KVPut(AMMPoolKey(pool.ID), newPoolRecord(pool)); err != nil {
		return err
	}
	return m.KVAppendString(ammPoolIndexKey, strings.TrimSpace(pool.ID))
}

// PoolIDs lists every stored pool in sorted order.
func (m *Manager) PoolIDs() ([]string, error) {
	var ids []string
	if _, err := m.KVGet(ammPoolIndexKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTrader implements amm.State.
func (m *Manager) GetTrader(poolID string, trader ethcommon.Address) (*amm.TraderRecord, error) {
	var record traderRecord
	ok, err := m.KVGet(AMMTraderKey(poolID, trader), &record)
	if err != nil || !ok {
		return nil, err
	}
	return &amm.TraderRecord{LastTradeTick: record.LastTradeTick}, nil
}

// PutTrader implements amm.State.
func (m *Manager) PutTrader(poolID string, trader ethcommon.Address, record *amm.TraderRecord) error {
	if record == nil {
		return fmt.Errorf("state: trader record required")
	}
	return m.KVPut(AMMTraderKey(poolID, trader), &traderRecord{LastTradeTick: record.LastTradeTick})
}

var _ amm.State = (*Manager)(nil)
