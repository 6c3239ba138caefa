package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pairamm/core/events"
	"pairamm/core/state"
	"pairamm/core/types"
	"pairamm/native/amm"
	nativecommon "pairamm/native/common"
	"pairamm/observability"
	telemetry "pairamm/observability/otel"
)

// Receipt describes a committed pool operation.
type Receipt struct {
	ID        uuid.UUID
	PoolID    string
	Operation string
	Tick      uint64
	Timestamp time.Time
	Events    []types.Event
}

// Executor hosts every pool engine. It serialises operations per pool, runs
// each inside its own state journal and only publishes events once the
// journal has been committed.
type Executor struct {
	store     *state.Store
	emitter   events.Emitter
	logger    *slog.Logger
	metrics   *observability.AMMMetrics
	tracer    trace.Tracer
	pauses    *ModulePauses
	authority nativecommon.AuthorityView
	clock     func() time.Time
	tick      atomic.Uint64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
	initMu  sync.Mutex
}

const opInitialize = "initialize"

// NewExecutor constructs an executor over store.
func NewExecutor(store *state.Store) *Executor {
	return &Executor{
		store:   store,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: observability.AMM(),
		tracer:  telemetry.Tracer(),
		pauses:  NewModulePauses(),
		clock:   time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// SetEmitter receives events of committed operations.
func (x *Executor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	x.emitter = emitter
}

func (x *Executor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		x.logger = logger
	}
}

// SetAuthority delegates admin checks for every pool to v.
func (x *Executor) SetAuthority(v nativecommon.AuthorityView) {
	x.authority = v
}

// SetClock overrides the wall clock, mainly for tests.
func (x *Executor) SetClock(clock func() time.Time) {
	if clock != nil {
		x.clock = clock
	}
}

// Pauses exposes the module-wide emergency switches.
func (x *Executor) Pauses() *ModulePauses {
	return x.pauses
}

// AdvanceTick moves the host to the next discrete time step and returns it.
func (x *Executor) AdvanceTick() uint64 {
	tick := x.tick.Add(1)
	x.metrics.SetTick(tick)
	return tick
}

// Tick returns the current time step.
func (x *Executor) Tick() uint64 {
	return x.tick.Load()
}

func (x *Executor) poolLock(poolID string) *sync.Mutex {
	x.locksMu.Lock()
	defer x.locksMu.Unlock()
	lock, ok := x.locks[poolID]
	if !ok {
		lock = &sync.Mutex{}
		x.locks[poolID] = lock
	}
	return lock
}

func (x *Executor) poolExists(poolID string) (bool, error) {
	manager := x.store.Begin()
	defer manager.Discard()
	pool, err := manager.GetPool(poolID)
	if err != nil {
		return false, err
	}
	return pool != nil, nil
}

// acquire locks poolID for operation. Only stored pools get an entry in the
// lock map; initialisations of new pools share initMu and every other
// operation on an unknown pool is rejected before any lock is taken.
func (x *Executor) acquire(poolID, operation string) (*sync.Mutex, bool, error) {
	if poolID == "" {
		return nil, false, fmt.Errorf("%w: pool id required", amm.ErrInvalidParameter)
	}
	known, err := x.poolExists(poolID)
	if err != nil {
		return nil, false, err
	}
	if known {
		lock := x.poolLock(poolID)
		lock.Lock()
		return lock, true, nil
	}
	if operation != opInitialize {
		return nil, false, amm.ErrPoolNotInitialised
	}
	x.initMu.Lock()
	return &x.initMu, false, nil
}

func (x *Executor) newEngine(manager *state.Manager, poolID string, emitter events.Emitter, tick uint64) *amm.Engine {
	engine := amm.NewEngine(poolID, manager, manager)
	engine.SetEmitter(emitter)
	engine.SetLogger(x.logger)
	engine.SetPauses(x.pauses)
	if x.authority != nil {
		engine.SetAuthority(x.authority)
	}
	engine.SetClock(x.clock)
	engine.SetTick(tick)
	return engine
}

// execute runs fn against a fresh journal and commits it. A failed operation
// leaves no trace in state and emits nothing. state.ErrConflict is returned
// as is; the caller resubmits.
func (x *Executor) execute(ctx context.Context, poolID, operation string, fn func(*amm.Engine) error) (*Receipt, error) {
	poolID = strings.TrimSpace(poolID)
	ctx, span := x.tracer.Start(ctx, "amm."+operation, trace.WithAttributes(
		attribute.String("amm.pool", poolID),
		attribute.String("amm.operation", operation),
	))
	defer span.End()

	start := time.Now()
	var (
		buffer events.Buffer
		tick   uint64
		known  bool
	)
	err := ctx.Err()
	if err == nil {
		var lock *sync.Mutex
		lock, known, err = x.acquire(poolID, operation)
		if err == nil {
			tick = x.Tick()
			err = x.run(lock, poolID, tick, &buffer, fn)
		}
	}
	if errors.Is(err, state.ErrConflict) {
		x.logger.Warn("amm commit conflict", "pool", poolID, "operation", operation)
	}

	// Unknown pool IDs come from callers; they share the "unknown" series.
	label := ""
	if known || err == nil {
		label = poolID
	}
	x.metrics.ObserveOperation(label, operation, amm.ReasonOf(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, amm.KindOf(err).String())
		return nil, err
	}

	published := buffer.Flush(x.emitter)
	for _, evt := range published {
		x.metrics.RecordEvent(evt.EventType())
	}
	x.recordPool(poolID)
	span.SetAttributes(attribute.Int("amm.events", len(published)))

	return &Receipt{
		ID:        uuid.New(),
		PoolID:    poolID,
		Operation: operation,
		Tick:      tick,
		Timestamp: x.clock().UTC(),
		Events:    events.Records(published),
	}, nil
}

// run applies fn in one journal while holding lock.
func (x *Executor) run(lock *sync.Mutex, poolID string, tick uint64, buffer *events.Buffer, fn func(*amm.Engine) error) error {
	defer lock.Unlock()
	manager := x.store.Begin()
	if err := fn(x.newEngine(manager, poolID, buffer, tick)); err != nil {
		manager.Discard()
		return err
	}
	return manager.Commit()
}

func (x *Executor) recordPool(poolID string) {
	pool, err := x.Pool(poolID)
	if err != nil {
		x.logger.Warn("amm pool gauges", "pool", poolID, "error", err)
		return
	}
	x.metrics.RecordPool(observability.PoolSnapshot{
		PoolID:        pool.ID,
		ReserveA:      pool.ReserveA,
		ReserveB:      pool.ReserveB,
		TWAPA:         pool.TWAPA,
		TWAPB:         pool.TWAPB,
		DailyVolume:   pool.DailyVolume,
		TradingPaused: pool.TradingPaused,
	})
}

// view runs fn against a read-only journal.
func (x *Executor) view(poolID string, fn func(*amm.Engine) error) error {
	manager := x.store.Begin()
	defer manager.Discard()
	return fn(x.newEngine(manager, poolID, events.NoopEmitter{}, x.Tick()))
}

// InitializePool creates poolID with the supplied parameters.
func (x *Executor) InitializePool(ctx context.Context, poolID string, authority ethcommon.Address, params amm.InitParams) (*amm.Pool, *Receipt, error) {
	var pool *amm.Pool
	receipt, err := x.execute(ctx, poolID, opInitialize, func(engine *amm.Engine) error {
		var err error
		pool, err = engine.Initialize(authority, params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return pool, receipt, nil
}

// AddLiquidity deposits both tokens from trader into poolID.
func (x *Executor) AddLiquidity(ctx context.Context, poolID string, trader ethcommon.Address, amountA, amountB, minUnits uint64) (*amm.LiquidityResult, *Receipt, error) {
	var result *amm.LiquidityResult
	receipt, err := x.execute(ctx, poolID, "add_liquidity", func(engine *amm.Engine) error {
		var err error
		result, err = engine.AddLiquidity(trader, amountA, amountB, minUnits)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, receipt, nil
}

// Swap trades amountIn of the input token of dir for the output token.
func (x *Executor) Swap(ctx context.Context, poolID string, trader ethcommon.Address, amountIn, minAmountOut uint64, dir amm.Direction) (*amm.SwapResult, *Receipt, error) {
	var result *amm.SwapResult
	receipt, err := x.execute(ctx, poolID, "swap", func(engine *amm.Engine) error {
		var err error
		result, err = engine.Swap(trader, amountIn, minAmountOut, dir)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, receipt, nil
}

// Pause halts trading on poolID.
func (x *Executor) Pause(ctx context.Context, poolID string, caller ethcommon.Address) (*Receipt, error) {
	return x.execute(ctx, poolID, "pause", func(engine *amm.Engine) error {
		return engine.Pause(caller)
	})
}

// Resume re-enables trading on poolID.
func (x *Executor) Resume(ctx context.Context, poolID string, caller ethcommon.Address) (*Receipt, error) {
	return x.execute(ctx, poolID, "resume", func(engine *amm.Engine) error {
		return engine.Resume(caller)
	})
}

// UpdateParameters applies a partial risk parameter update to poolID.
func (x *Executor) UpdateParameters(ctx context.Context, poolID string, caller ethcommon.Address, update amm.ParamUpdate) (*amm.Pool, *Receipt, error) {
	var pool *amm.Pool
	receipt, err := x.execute(ctx, poolID, "update_parameters", func(engine *amm.Engine) error {
		var err error
		pool, err = engine.UpdateParameters(caller, update)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return pool, receipt, nil
}

// Quote prices a swap without executing it.
func (x *Executor) Quote(poolID string, amountIn uint64, dir amm.Direction) (amm.SwapQuote, error) {
	var quote amm.SwapQuote
	err := x.view(poolID, func(engine *amm.Engine) error {
		var err error
		quote, err = engine.QuoteSwap(amountIn, dir)
		return err
	})
	return quote, err
}

// Pool returns the committed state of poolID.
func (x *Executor) Pool(poolID string) (*amm.Pool, error) {
	var pool *amm.Pool
	err := x.view(poolID, func(engine *amm.Engine) error {
		var err error
		pool, err = engine.Pool()
		return err
	})
	return pool, err
}

// Status returns the public status view of poolID.
func (x *Executor) Status(poolID string) (amm.Status, error) {
	var status amm.Status
	err := x.view(poolID, func(engine *amm.Engine) error {
		var err error
		status, err = engine.Status()
		return err
	})
	return status, err
}

// Trader returns the per-pool record of trader, or nil when it has never
// traded.
func (x *Executor) Trader(poolID string, trader ethcommon.Address) (*amm.TraderRecord, error) {
	var record *amm.TraderRecord
	err := x.view(poolID, func(engine *amm.Engine) error {
		var err error
		record, err = engine.Trader(trader)
		return err
	})
	return record, err
}

// Pools lists the identifiers of every initialised pool.
func (x *Executor) Pools() ([]string, error) {
	manager := x.store.Begin()
	defer manager.Discard()
	ids, err := manager.PoolIDs()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Balance returns the ledger balance of owner in token.
func (x *Executor) Balance(token string, owner ethcommon.Address) (uint64, error) {
	manager := x.store.Begin()
	defer manager.Discard()
	return manager.BalanceOf(token, owner)
}

// Update runs fn in a journal outside any pool, e.g. to register tokens and
// seed balances at start-up. The journal is committed when fn succeeds.
func (x *Executor) Update(ctx context.Context, fn func(*state.Manager) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	manager := x.store.Begin()
	if err := fn(manager); err != nil {
		manager.Discard()
		return err
	}
	return manager.Commit()
}
