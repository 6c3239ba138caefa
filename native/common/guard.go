package common

import (
	"errors"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrModulePaused = errors.New("module paused")
	ErrUnauthorised = errors.New("caller not authorised")
)

// PauseView exposes the module-wide pause switches owned by the emergency
// subsystem.
type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// AuthorityView answers capability checks for administrative calls. The scope
// identifies the protected resource, e.g. "amm/<pool>".
type AuthorityView interface {
	IsAuthority(scope string, caller ethcommon.Address) bool
}

// RequireAuthority rejects callers the view does not recognise. A nil view
// denies every caller.
func RequireAuthority(v AuthorityView, scope string, caller ethcommon.Address) error {
	if v == nil || scope == "" {
		return ErrUnauthorised
	}
	if !v.IsAuthority(scope, caller) {
		return ErrUnauthorised
	}
	return nil
}
