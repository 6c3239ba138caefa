package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"pairamm/core"
	"pairamm/core/state"
	"pairamm/gateway/middleware"
	"pairamm/native/amm"
)

// CallerHeader names the caller when bearer auth is disabled, for local
// deployments only.
const CallerHeader = "X-Pairamm-Caller"

const maxBodyBytes = 1 << 16

type ammHandlers struct {
	backend Backend
	logger  *slog.Logger
	auth    *middleware.Authenticator
}

type poolView struct {
	ID               string `json:"id"`
	Authority        string `json:"authority"`
	TokenA           string `json:"tokenA"`
	TokenB           string `json:"tokenB"`
	VaultA           string `json:"vaultA"`
	VaultB           string `json:"vaultB"`
	ReserveA         uint64 `json:"reserveA,string"`
	ReserveB         uint64 `json:"reserveB,string"`
	TotalLiquidity   uint64 `json:"totalLiquidity,string"`
	FeeBps           uint16 `json:"feeBps"`
	MaxTradeSize     uint64 `json:"maxTradeSize,string"`
	DailyVolumeLimit uint64 `json:"dailyVolumeLimit,string"`
	MaxSlippageBps   uint16 `json:"maxSlippageBps"`
	MaxDeviationBps  uint16 `json:"maxDeviationBps"`
	DeviationGuard   bool   `json:"deviationGuard"`
	TradingPaused    bool   `json:"tradingPaused"`
	DailyVolume      uint64 `json:"dailyVolume,string"`
	LastVolumeReset  int64  `json:"lastVolumeReset"`
	TWAPWindow       int64  `json:"twapWindow"`
	TWAPA            uint64 `json:"twapA,string"`
	TWAPB            uint64 `json:"twapB,string"`
	LastTWAPUpdate   int64  `json:"lastTwapUpdate"`
}

func newPoolView(p *amm.Pool) poolView {
	return poolView{
		ID:               p.ID,
		Authority:        p.Authority.Hex(),
		TokenA:           p.TokenA,
		TokenB:           p.TokenB,
		VaultA:           p.VaultA.Hex(),
		VaultB:           p.VaultB.Hex(),
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
		LastVolumeReset:  p.LastVolumeReset,
		TWAPWindow:       p.TWAPWindow,
		TWAPA:            p.TWAPA,
		TWAPB:            p.TWAPB,
		LastTWAPUpdate:   p.LastTWAPUpdate,
	}
}

type statusView struct {
	PoolID         string `json:"poolId"`
	TradingPaused  bool   `json:"tradingPaused"`
	ReserveA       uint64 `json:"reserveA,string"`
	ReserveB       uint64 `json:"reserveB,string"`
	TotalLiquidity uint64 `json:"totalLiquidity,string"`
	TWAPA          uint64 `json:"twapA,string"`
	TWAPB          uint64 `json:"twapB,string"`
	DailyVolume    uint64 `json:"dailyVolume,string"`
	LastTWAPUpdate int64  `json:"lastTwapUpdate"`
	Tick           uint64 `json:"tick"`
}

type quoteView struct {
	Direction    string `json:"direction"`
	AmountIn     uint64 `json:"amountIn,string"`
	Fee          uint64 `json:"fee,string"`
	AmountInNet  uint64 `json:"amountInNet,string"`
	AmountOut    uint64 `json:"amountOut,string"`
	MinAmountOut uint64 `json:"minAmountOut,string"`
}

func newQuoteView(q amm.SwapQuote) quoteView {
	return quoteView{
		Direction:    q.Direction.String(),
		AmountIn:     q.AmountIn,
		Fee:          q.Fee,
		AmountInNet:  q.AmountInNet,
		AmountOut:    q.AmountOut,
		MinAmountOut: q.MinAmountOut,
	}
}

type receiptView struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	Tick      uint64            `json:"tick"`
	Timestamp int64             `json:"timestamp"`
	Events    []json.RawMessage `json:"events,omitempty"`
}

func newReceiptView(r *core.Receipt) *receiptView {
	if r == nil {
		return nil
	}
	view := &receiptView{
		ID:        r.ID.String(),
		Operation: r.Operation,
		Tick:      r.Tick,
		Timestamp: r.Timestamp.Unix(),
	}
	for _, evt := range r.Events {
		encoded, err := json.Marshal(struct {
			Type       string            `json:"type"`
			Attributes map[string]string `json:"attributes"`
		}{evt.Type, evt.Attributes})
		if err == nil {
			view.Events = append(view.Events, encoded)
		}
	}
	return view
}

type liquidityRequest struct {
	AmountA  uint64 `json:"amountA,string"`
	AmountB  uint64 `json:"amountB,string"`
	MinUnits uint64 `json:"minUnits,string"`
}

type swapRequest struct {
	AmountIn     uint64 `json:"amountIn,string"`
	MinAmountOut uint64 `json:"minAmountOut,string"`
	Direction    string `json:"direction"`
}

type parametersRequest struct {
	MaxTradeSize     *uint64 `json:"maxTradeSize,string,omitempty"`
	DailyVolumeLimit *uint64 `json:"dailyVolumeLimit,string,omitempty"`
	MaxSlippageBps   *uint16 `json:"maxSlippageBps,omitempty"`
	MaxDeviationBps  *uint16 `json:"maxDeviationBps,omitempty"`
	DeviationGuard   *bool   `json:"deviationGuard,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (h *ammHandlers) listPools(w http.ResponseWriter, r *http.Request) {
	ids, err := h.backend.Pools()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pools": ids})
}

func (h *ammHandlers) getPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.backend.Pool(chi.URLParam(r, "poolID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolView(pool))
}

func (h *ammHandlers) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.backend.Status(chi.URLParam(r, "poolID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusView{
		PoolID:         status.PoolID,
		TradingPaused:  status.TradingPaused,
		ReserveA:       status.ReserveA,
		ReserveB:       status.ReserveB,
		TotalLiquidity: status.TotalLiquidity,
		TWAPA:          status.TWAPA,
		TWAPB:          status.TWAPB,
		DailyVolume:    status.DailyVolume,
		LastTWAPUpdate: status.LastTWAPUpdate,
		Tick:           h.backend.Tick(),
	})
}

func (h *ammHandlers) getQuote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amountIn, err := strconv.ParseUint(strings.TrimSpace(query.Get("amountIn")), 10, 64)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: amountIn: %v", amm.ErrInvalidParameter, err))
		return
	}
	dir, err := amm.ParseDirection(query.Get("direction"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	quote, err := h.backend.Quote(chi.URLParam(r, "poolID"), amountIn, dir)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(quote))
}

func (h *ammHandlers) getTrader(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !ethcommon.IsHexAddress(raw) {
		h.writeError(w, fmt.Errorf("%w: address %q", amm.ErrInvalidParameter, raw))
		return
	}
	record, err := h.backend.Trader(chi.URLParam(r, "poolID"), ethcommon.HexToAddress(raw))
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := map[string]interface{}{"address": ethcommon.HexToAddress(raw).Hex(), "traded": record != nil}
	if record != nil {
		resp["lastTradeTick"] = record.LastTradeTick
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ammHandlers) addLiquidity(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req liquidityRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, receipt, err := h.backend.AddLiquidity(r.Context(), chi.URLParam(r, "poolID"), caller, req.AmountA, req.AmountB, req.MinUnits)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unitsMinted":    strconv.FormatUint(result.UnitsMinted, 10),
		"reserveA":       strconv.FormatUint(result.ReserveA, 10),
		"reserveB":       strconv.FormatUint(result.ReserveB, 10),
		"totalLiquidity": strconv.FormatUint(result.TotalLiquidity, 10),
		"receipt":        newReceiptView(receipt),
	})
}

func (h *ammHandlers) swap(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req swapRequest
	if !h.decode(w, r, &req) {
		return
	}
	dir, err := amm.ParseDirection(req.Direction)
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, receipt, err := h.backend.Swap(r.Context(), chi.URLParam(r, "poolID"), caller, req.AmountIn, req.MinAmountOut, dir)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quote":    newQuoteView(result.SwapQuote),
		"reserveA": strconv.FormatUint(result.ReserveA, 10),
		"reserveB": strconv.FormatUint(result.ReserveB, 10),
		"receipt":  newReceiptView(receipt),
	})
}

func (h *ammHandlers) pause(w http.ResponseWriter, r *http.Request) {
	h.admin(w, r, h.backend.Pause)
}

func (h *ammHandlers) resume(w http.ResponseWriter, r *http.Request) {
	h.admin(w, r, h.backend.Resume)
}

func (h *ammHandlers) admin(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, poolID string, caller ethcommon.Address) (*core.Receipt, error)) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	poolID := chi.URLParam(r, "poolID")
	receipt, err := op(r.Context(), poolID, caller)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status, err := h.backend.Status(poolID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tradingPaused": status.TradingPaused,
		"receipt":       newReceiptView(receipt),
	})
}

func (h *ammHandlers) updateParameters(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req parametersRequest
	if !h.decode(w, r, &req) {
		return
	}
	pool, receipt, err := h.backend.UpdateParameters(r.Context(), chi.URLParam(r, "poolID"), caller, amm.ParamUpdate{
		MaxTradeSize:     req.MaxTradeSize,
		DailyVolumeLimit: req.DailyVolumeLimit,
		MaxSlippageBps:   req.MaxSlippageBps,
		MaxDeviationBps:  req.MaxDeviationBps,
		DeviationGuard:   req.DeviationGuard,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pool":    newPoolView(pool),
		"receipt": newReceiptView(receipt),
	})
}

// caller resolves the acting address from the bearer token, or from
// CallerHeader when auth is disabled.
func (h *ammHandlers) caller(w http.ResponseWriter, r *http.Request) (ethcommon.Address, bool) {
	if caller, ok := middleware.CallerFromContext(r.Context()); ok {
		return caller, true
	}
	if !h.auth.Enabled() {
		raw := strings.TrimSpace(r.Header.Get(CallerHeader))
		if ethcommon.IsHexAddress(raw) {
			return ethcommon.HexToAddress(raw), true
		}
	}
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "caller identity required"})
	return ethcommon.Address{}, false
}

func (h *ammHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), Kind: amm.KindValidation.String()})
		return false
	}
	return true
}

func (h *ammHandlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("amm request failed", "error", err)
	}
	kind := amm.KindOf(err)
	resp := errorResponse{Error: err.Error(), Reason: amm.ReasonOf(err)}
	if kind != amm.KindUnknown {
		resp.Kind = kind.String()
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, amm.ErrPoolNotInitialised):
		return http.StatusNotFound
	case errors.Is(err, state.ErrConflict):
		return http.StatusConflict
	}
	switch amm.KindOf(err) {
	case amm.KindValidation:
		return http.StatusBadRequest
	case amm.KindAuthorisation:
		return http.StatusForbidden
	case amm.KindState:
		return http.StatusConflict
	case amm.KindLimitExceeded, amm.KindArithmetic:
		return http.StatusUnprocessableEntity
	case amm.KindTransfer:
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
