package common

import (
	"errors"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type authorityFunc func(scope string, caller ethcommon.Address) bool

func (f authorityFunc) IsAuthority(scope string, caller ethcommon.Address) bool {
	return f(scope, caller)
}

type pausedModules map[string]bool

func (p pausedModules) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "amm"); err != nil {
		t.Fatalf("nil view should not block: %v", err)
	}
	pauses := pausedModules{"amm": true}
	if err := Guard(pauses, "amm"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "lending"); err != nil {
		t.Fatalf("unrelated module blocked: %v", err)
	}
}

func TestRequireAuthority(t *testing.T) {
	admin := ethcommon.HexToAddress("0x01")
	view := authorityFunc(func(scope string, caller ethcommon.Address) bool {
		return scope == "amm/main" && caller == admin
	})
	if err := RequireAuthority(view, "amm/main", admin); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
	if err := RequireAuthority(view, "amm/main", ethcommon.HexToAddress("0x02")); !errors.Is(err, ErrUnauthorised) {
		t.Fatalf("expected ErrUnauthorised, got %v", err)
	}
	if err := RequireAuthority(nil, "amm/main", admin); !errors.Is(err, ErrUnauthorised) {
		t.Fatalf("nil view must deny, got %v", err)
	}
}
