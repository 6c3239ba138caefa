package amm

import (
	"errors"
	"fmt"
	"strconv"

	nativecommon "pairamm/native/common"
)

var (
	// ErrInvalidAmount indicates a zero amount was supplied where a positive value is required.
	ErrInvalidAmount = errors.New("amm: amount must be positive")
	// ErrInvalidParameter indicates a malformed parameter such as an unknown direction or empty handle.
	ErrInvalidParameter = errors.New("amm: invalid parameter")
	// ErrFeeTooHigh indicates the trading fee exceeded the 100 bps ceiling.
	ErrFeeTooHigh = errors.New("amm: fee too high")
	// ErrSlippageTooHigh indicates the slippage tolerance exceeded the 1000 bps ceiling.
	ErrSlippageTooHigh = errors.New("amm: slippage tolerance too high")

	// ErrTradingPaused indicates the pool rejected the operation because trading is halted.
	ErrTradingPaused = errors.New("amm: trading is paused")
	// ErrPoolNotInitialised indicates no pool record exists for the configured identifier.
	ErrPoolNotInitialised = errors.New("amm: pool not initialised")
	// ErrPoolExists indicates an attempt to initialise a pool twice.
	ErrPoolExists = errors.New("amm: pool already initialised")
	// ErrInsufficientLiquidity indicates the pool has no active reserves to trade against.
	ErrInsufficientLiquidity = errors.New("amm: insufficient liquidity")

	// ErrTradeSizeTooLarge indicates the swap input exceeded the per-trade ceiling.
	ErrTradeSizeTooLarge = errors.New("amm: trade size exceeds maximum allowed")
	// ErrDailyVolumeLimitExceeded indicates the swap would push the daily bucket over its cap.
	ErrDailyVolumeLimitExceeded = errors.New("amm: daily volume limit exceeded")
	// ErrSlippageExceeded indicates the computed output fell below the caller's minimum.
	ErrSlippageExceeded = errors.New("amm: slippage exceeded")
	// ErrFlashLoanDetected indicates the trader already swapped within the current tick.
	ErrFlashLoanDetected = errors.New("amm: flash loan detected")
	// ErrPriceDeviation indicates the post-trade price strayed too far from the TWAP.
	ErrPriceDeviation = errors.New("amm: price deviates from twap")

	// ErrOverflow indicates a checked arithmetic operation overflowed.
	ErrOverflow = errors.New("amm: arithmetic overflow")
	// ErrDivisionByZero indicates a division by an empty reserve or window.
	ErrDivisionByZero = errors.New("amm: division by zero")

	// ErrTransferFailed wraps failures reported by the external transfer service.
	ErrTransferFailed = errors.New("amm: transfer failed")

	// ErrUnauthorised indicates the caller does not hold the pool authority.
	ErrUnauthorised = errors.New("amm: caller not authorised")

	errNilState     = errors.New("amm: state not configured")
	errNilTransfers = errors.New("amm: transfer service not configured")
)

// ErrorKind groups failures by how a caller should react to them.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindState
	KindLimitExceeded
	KindArithmetic
	KindTransfer
	KindAuthorisation
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindArithmetic:
		return "arithmetic"
	case KindTransfer:
		return "transfer"
	case KindAuthorisation:
		return "authorisation"
	default:
		return "unknown"
	}
}

var errorKinds = []struct {
	target error
	kind   ErrorKind
}{
	{ErrInvalidAmount, KindValidation},
	{ErrInvalidParameter, KindValidation},
	{ErrFeeTooHigh, KindValidation},
	{ErrSlippageTooHigh, KindValidation},
	{ErrTradingPaused, KindState},
	{nativecommon.ErrModulePaused, KindState},
	{ErrPoolNotInitialised, KindState},
	{ErrPoolExists, KindState},
	{ErrInsufficientLiquidity, KindState},
	{ErrTradeSizeTooLarge, KindLimitExceeded},
	{ErrDailyVolumeLimitExceeded, KindLimitExceeded},
	{ErrSlippageExceeded, KindLimitExceeded},
	{ErrFlashLoanDetected, KindLimitExceeded},
	{ErrPriceDeviation, KindLimitExceeded},
	{ErrOverflow, KindArithmetic},
	{ErrDivisionByZero, KindArithmetic},
	{ErrTransferFailed, KindTransfer},
	{ErrUnauthorised, KindAuthorisation},
	{nativecommon.ErrUnauthorised, KindAuthorisation},
}

// KindOf classifies err against the engine's sentinel errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, entry := range errorKinds {
		if errors.Is(err, entry.target) {
			return entry.kind
		}
	}
	return KindUnknown
}

// LimitCode enumerates the guards that can reject an operation.
type LimitCode string

const (
	LimitCodeTradeSize   LimitCode = "trade_size"
	LimitCodeDailyVolume LimitCode = "daily_volume"
	LimitCodeSlippage    LimitCode = "slippage"
	LimitCodeFlashLoan   LimitCode = "flash_loan"
	LimitCodeDeviation   LimitCode = "deviation"
)

// LimitError reports which guard rejected an operation together with the
// configured limit and the value that breached it.
type LimitError struct {
	Code    LimitCode
	Limit   uint64
	Current uint64
	Err     error
}

func (le *LimitError) Error() string {
	if le == nil {
		return ""
	}
	base := "amm: limit exceeded"
	if le.Err != nil {
		base = le.Err.Error()
	}
	return fmt.Sprintf("%s (%s: limit %s, got %s)", base, le.Code,
		strconv.FormatUint(le.Limit, 10), strconv.FormatUint(le.Current, 10))
}

func (le *LimitError) Unwrap() error {
	if le == nil {
		return nil
	}
	return le.Err
}

func limitError(code LimitCode, sentinel error, limit, current uint64) error {
	return &LimitError{Code: code, Limit: limit, Current: current, Err: sentinel}
}

// ReasonOf returns a stable, low-cardinality label describing err.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var limit *LimitError
	if errors.As(err, &limit) && limit.Code != "" {
		return string(limit.Code)
	}
	return KindOf(err).String()
}

func transferError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransferFailed, step, err)
}
