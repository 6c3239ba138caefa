package genesis

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// AccountHRP is the human readable part of bech32 encoded accounts.
const AccountHRP = "amm"

// ParseAccount accepts a 0x-prefixed hex address or a bech32 address with the
// AccountHRP prefix.
func ParseAccount(addr string) (ethcommon.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if ethcommon.IsHexAddress(trimmed) {
		return ethcommon.HexToAddress(trimmed), nil
	}
	var out ethcommon.Address
	hrp, data, err := bech32.Decode(trimmed)
	if err != nil {
		return out, fmt.Errorf("decode bech32 account: %w", err)
	}
	if hrp != AccountHRP {
		return out, fmt.Errorf("decode bech32 account: unsupported hrp %q", hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("decode bech32 account: %w", err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("decode bech32 account: invalid address length %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// EncodeAccount renders addr in bech32 form.
func EncodeAccount(addr ethcommon.Address) (string, error) {
	converted, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(AccountHRP, converted)
}
