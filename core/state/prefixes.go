package state

import (
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ammPoolPrefix   = []byte("amm/pool/")
	ammPoolIndexKey = []byte("amm/pools")
	ammTraderPrefix = []byte("amm/trader/")
	tokenPrefix     = []byte("token/")
	tokenListKey    = []byte("token/list")
	balancePrefix   = []byte("balance/")
	custodianPrefix = []byte("custodian/")
)

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// AMMPoolKey returns the state key of a pool record.
func AMMPoolKey(poolID string) []byte {
	return append(append([]byte(nil), ammPoolPrefix...), strings.TrimSpace(poolID)...)
}

// AMMTraderKey returns the state key of a trader record for one pool.
func AMMTraderKey(poolID string, trader ethcommon.Address) []byte {
	key := append(append([]byte(nil), ammTraderPrefix...), strings.TrimSpace(poolID)...)
	key = append(key, '/')
	return append(key, trader.Bytes()...)
}

// TokenKey returns the state key of a token's metadata.
func TokenKey(symbol string) []byte {
	return append(append([]byte(nil), tokenPrefix...), normaliseSymbol(symbol)...)
}

// BalanceKey returns the state key of owner's balance of symbol.
func BalanceKey(symbol string, owner ethcommon.Address) []byte {
	key := append(append([]byte(nil), balancePrefix...), normaliseSymbol(symbol)...)
	key = append(key, '/')
	return append(key, owner.Bytes()...)
}

// CustodianKey returns the state key of the account allowed to debit account.
func CustodianKey(account ethcommon.Address) []byte {
	return append(append([]byte(nil), custodianPrefix...), account.Bytes()...)
}
