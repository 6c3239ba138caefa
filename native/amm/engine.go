package amm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/events"
	nativecommon "pairamm/native/common"
)

const moduleName = "amm"

// State is the persistence the engine needs. GetPool and GetTrader return nil
// without an error when the record does not exist.
type State interface {
	GetPool(poolID string) (*Pool, error)
	PutPool(pool *Pool) error
	GetTrader(poolID string, trader ethcommon.Address) (*TraderRecord, error)
	PutTrader(poolID string, trader ethcommon.Address, record *TraderRecord) error
}

// TransferService moves tokens between accounts on behalf of the pool. The
// authority must be allowed to debit from.
type TransferService interface {
	Transfer(token string, from, to, authority ethcommon.Address, amount uint64) error
	BalanceOf(token string, owner ethcommon.Address) (uint64, error)
}

// Engine executes pool operations against a single pool. It assumes the host
// serialises calls for the same pool and wraps each call in an atomic commit
// boundary.
type Engine struct {
	state     State
	transfers TransferService
	authority nativecommon.AuthorityView
	pauses    nativecommon.PauseView
	emitter   events.Emitter
	logger    *slog.Logger
	poolID    string
	clock     func() time.Time
	tick      uint64
}

// NewEngine constructs an engine bound to poolID.
func NewEngine(poolID string, state State, transfers TransferService) *Engine {
	return &Engine{
		state:     state,
		transfers: transfers,
		poolID:    strings.TrimSpace(poolID),
		emitter:   events.NoopEmitter{},
		logger:    slog.Default(),
		clock:     time.Now,
	}
}

// PoolID returns the pool identifier the engine operates on.
func (e *Engine) PoolID() string {
	if e == nil {
		return ""
	}
	return e.poolID
}

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.logger = logger
}

// SetPauses wires the module-wide emergency switch.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetAuthority delegates admin capability checks to the host. Without a view
// the caller must match the authority recorded on the pool.
func (e *Engine) SetAuthority(v nativecommon.AuthorityView) {
	if e == nil {
		return
	}
	e.authority = v
}

// SetClock overrides the time source, enabling deterministic unit tests.
func (e *Engine) SetClock(clock func() time.Time) {
	if e == nil || clock == nil {
		return
	}
	e.clock = clock
}

// SetTick records the host's current discrete time step.
func (e *Engine) SetTick(tick uint64) {
	if e == nil {
		return
	}
	e.tick = tick
}

func (e *Engine) now() int64 {
	return e.clock().UTC().Unix()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.poolID == "" {
		return fmt.Errorf("%w: pool id required", ErrInvalidParameter)
	}
	return nil
}

func (e *Engine) loadPool() (*Pool, error) {
	pool, err := e.state.GetPool(e.poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotInitialised
	}
	return pool, nil
}

// Scope names the capability protecting this pool's admin surface.
func (e *Engine) Scope() string {
	return moduleName + "/" + e.PoolID()
}

func (e *Engine) authorise(pool *Pool, caller ethcommon.Address) error {
	if e.authority != nil {
		return nativecommon.RequireAuthority(e.authority, e.Scope(), caller)
	}
	if caller == (ethcommon.Address{}) || caller != pool.Authority {
		return ErrUnauthorised
	}
	return nil
}

func (e *Engine) transfer(step, token string, from, to, authority ethcommon.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if e.transfers == nil {
		return errNilTransfers
	}
	if err := e.transfers.Transfer(token, from, to, authority, amount); err != nil {
		return transferError(step, err)
	}
	return nil
}

// Initialize creates the pool record. The caller becomes the pool authority.
func (e *Engine) Initialize(authority ethcommon.Address, params InitParams) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if authority == (ethcommon.Address{}) {
		return nil, fmt.Errorf("%w: authority required", ErrInvalidParameter)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	existing, err := e.state.GetPool(e.poolID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPoolExists
	}
	now := e.now()
	window := params.TWAPWindow
	if window == 0 {
		window = DefaultTWAPWindowSeconds
	}
	pool := &Pool{
		ID:               e.poolID,
		Authority:        authority,
		TokenA:           strings.TrimSpace(params.TokenA),
		TokenB:           strings.TrimSpace(params.TokenB),
		VaultA:           params.VaultA,
		VaultB:           params.VaultB,
		VaultAuthority:   params.VaultAuthority,
		FeeBps:           params.FeeBps,
		MaxTradeSize:     params.MaxTradeSize,
		DailyVolumeLimit: params.DailyVolumeLimit,
		MaxSlippageBps:   params.MaxSlippageBps,
		MaxDeviationBps:  params.MaxDeviationBps,
		DeviationGuard:   params.DeviationGuard,
		LastVolumeReset:  now,
		TWAPWindow:       window,
		LastTWAPUpdate:   now,
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.PoolInitialized{
		PoolID:    pool.ID,
		Authority: authority,
		TokenA:    pool.TokenA,
		TokenB:    pool.TokenB,
		FeeBps:    pool.FeeBps,
	})
	e.logger.Info("amm pool initialised", "pool", pool.ID, "tokenA", pool.TokenA, "tokenB", pool.TokenB,
		"feeBps", pool.FeeBps, "twapWindow", pool.TWAPWindow)
	return pool.Clone(), nil
}

// Pool returns a snapshot of the pool record.
func (e *Engine) Pool() (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadPool()
}

// Status returns the collaborator view of the pool.
func (e *Engine) Status() (Status, error) {
	pool, err := e.Pool()
	if err != nil {
		return Status{}, err
	}
	return pool.Status(), nil
}

// Trader returns the trader's record, or nil when it never swapped.
func (e *Engine) Trader(trader ethcommon.Address) (*TraderRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.GetTrader(e.poolID, trader)
}
