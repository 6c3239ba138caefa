package events

import (
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func addressString(addr ethcommon.Address) string {
	if addr == (ethcommon.Address{}) {
		return ""
	}
	return addr.Hex()
}
