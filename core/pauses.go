package core

import (
	"strings"
	"sync"
)

// ModulePauses is the emergency switch board consulted before every mutating
// pool operation.
type ModulePauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewModulePauses() *ModulePauses {
	return &ModulePauses{paused: make(map[string]bool)}
}

// Set flips the switch for module.
func (p *ModulePauses) Set(module string, paused bool) {
	module = strings.ToLower(strings.TrimSpace(module))
	if module == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		p.paused[module] = true
		return
	}
	delete(p.paused, module)
}

func (p *ModulePauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[strings.ToLower(strings.TrimSpace(module))]
}
