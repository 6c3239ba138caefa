package routes

import (
	"context"
	"log/slog"
	"net/http"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"pairamm/core"
	"pairamm/gateway/middleware"
	"pairamm/native/amm"
)

// Backend is the pool host the gateway fronts.
type Backend interface {
	Pools() ([]string, error)
	Pool(poolID string) (*amm.Pool, error)
	Status(poolID string) (amm.Status, error)
	Quote(poolID string, amountIn uint64, dir amm.Direction) (amm.SwapQuote, error)
	Trader(poolID string, trader ethcommon.Address) (*amm.TraderRecord, error)
	Tick() uint64

	AddLiquidity(ctx context.Context, poolID string, trader ethcommon.Address, amountA, amountB, minUnits uint64) (*amm.LiquidityResult, *core.Receipt, error)
	Swap(ctx context.Context, poolID string, trader ethcommon.Address, amountIn, minAmountOut uint64, dir amm.Direction) (*amm.SwapResult, *core.Receipt, error)
	Pause(ctx context.Context, poolID string, caller ethcommon.Address) (*core.Receipt, error)
	Resume(ctx context.Context, poolID string, caller ethcommon.Address) (*core.Receipt, error)
	UpdateParameters(ctx context.Context, poolID string, caller ethcommon.Address, update amm.ParamUpdate) (*amm.Pool, *core.Receipt, error)
}

var _ Backend = (*core.Executor)(nil)

type Config struct {
	Backend       Backend
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, logger)
	}
	auth := cfg.Authenticator
	if auth == nil {
		auth = middleware.NewAuthenticator(middleware.AuthConfig{}, logger)
	}

	r.With(obs.Middleware("healthz")).Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", obs.MetricsHandler())

	h := &ammHandlers{backend: cfg.Backend, logger: logger, auth: auth}
	r.Route("/v1/amm", func(sr chi.Router) {
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware("amm"))
		}
		sr.With(obs.Middleware("amm.pools")).Get("/pools", h.listPools)
		sr.Route("/pools/{poolID}", func(pr chi.Router) {
			pr.With(obs.Middleware("amm.pool")).Get("/", h.getPool)
			pr.With(obs.Middleware("amm.status")).Get("/status", h.getStatus)
			pr.With(obs.Middleware("amm.quote")).Get("/quote", h.getQuote)
			pr.With(obs.Middleware("amm.trader")).Get("/traders/{address}", h.getTrader)

			pr.Group(func(tr chi.Router) {
				tr.Use(auth.Middleware(middleware.ScopeTrade))
				tr.With(obs.Middleware("amm.liquidity")).Post("/liquidity", h.addLiquidity)
				tr.With(obs.Middleware("amm.swap")).Post("/swap", h.swap)
			})
			pr.Group(func(ar chi.Router) {
				if cfg.RateLimiter != nil {
					ar.Use(cfg.RateLimiter.Middleware("admin"))
				}
				ar.Use(auth.Middleware(middleware.ScopeAdmin))
				ar.With(obs.Middleware("amm.pause")).Post("/pause", h.pause)
				ar.With(obs.Middleware("amm.resume")).Post("/resume", h.resume)
				ar.With(obs.Middleware("amm.parameters")).Patch("/parameters", h.updateParameters)
			})
		})
	})
	return r
}
