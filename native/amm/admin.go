package amm

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/events"
)

// Pause halts liquidity deposits and swaps. Every authorised call emits
// TradingPaused, including one against an already paused pool.
func (e *Engine) Pause(caller ethcommon.Address) error {
	return e.setPaused(caller, true)
}

// Resume lifts a previous Pause.
func (e *Engine) Resume(caller ethcommon.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller ethcommon.Address, paused bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := e.authorise(pool, caller); err != nil {
		return err
	}
	next := pool.Clone()
	if pool.TradingPaused != paused {
		next.TradingPaused = paused
		if err := e.state.PutPool(next); err != nil {
			return err
		}
	}
	if paused {
		e.emitter.Emit(events.TradingPaused{PoolID: next.ID, Authority: caller})
		e.logger.Warn("amm trading paused", "pool", next.ID, "authority", caller.Hex())
	} else {
		e.emitter.Emit(events.TradingResumed{PoolID: next.ID, Authority: caller})
		e.logger.Info("amm trading resumed", "pool", next.ID, "authority", caller.Hex())
	}
	return nil
}

// UpdateParameters applies the non-nil fields of update. Reserves and fees are
// never touched. An empty update is accepted and leaves the pool unchanged.
func (e *Engine) UpdateParameters(caller ethcommon.Address, update ParamUpdate) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if update.MaxSlippageBps != nil && *update.MaxSlippageBps > MaxSlippageBps {
		return nil, ErrSlippageTooHigh
	}
	if update.MaxDeviationBps != nil && *update.MaxDeviationBps > basisPoints {
		return nil, fmt.Errorf("%w: max deviation %d bps exceeds %d", ErrInvalidParameter, *update.MaxDeviationBps, basisPoints)
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := e.authorise(pool, caller); err != nil {
		return nil, err
	}
	if update.Empty() {
		return pool.Clone(), nil
	}

	next := pool.Clone()
	if update.MaxTradeSize != nil {
		next.MaxTradeSize = *update.MaxTradeSize
	}
	if update.DailyVolumeLimit != nil {
		next.DailyVolumeLimit = *update.DailyVolumeLimit
	}
	if update.MaxSlippageBps != nil {
		next.MaxSlippageBps = *update.MaxSlippageBps
	}
	if update.MaxDeviationBps != nil {
		next.MaxDeviationBps = *update.MaxDeviationBps
	}
	if update.DeviationGuard != nil {
		next.DeviationGuard = *update.DeviationGuard
	}
	if err := e.state.PutPool(next); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.ParametersUpdated{
		PoolID:           next.ID,
		Authority:        caller,
		MaxTradeSize:     next.MaxTradeSize,
		DailyVolumeLimit: next.DailyVolumeLimit,
		MaxSlippageBps:   next.MaxSlippageBps,
		MaxDeviationBps:  next.MaxDeviationBps,
		DeviationGuard:   next.DeviationGuard,
	})
	e.logger.Info("amm parameters updated", "pool", next.ID, "authority", caller.Hex(),
		"maxTradeSize", next.MaxTradeSize, "dailyVolumeLimit", next.DailyVolumeLimit,
		"maxSlippageBps", next.MaxSlippageBps, "maxDeviationBps", next.MaxDeviationBps,
		"deviationGuard", next.DeviationGuard)
	return next.Clone(), nil
}
