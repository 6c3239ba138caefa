package state

import (
	"errors"
	"fmt"
	"math/bits"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/native/amm"
)

var (
	// ErrUnknownToken indicates the token symbol was never registered.
	ErrUnknownToken = errors.New("state: token not registered")
	// ErrInsufficientBalance indicates the debited account cannot cover the amount.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrTransferNotAuthorised indicates the authority may not debit the source account.
	ErrTransferNotAuthorised = errors.New("state: transfer authority mismatch")
	// ErrBalanceOverflow indicates a credit would overflow the destination balance.
	ErrBalanceOverflow = errors.New("state: balance overflow")
)

// TokenMetadata describes a registered token.
type TokenMetadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}

// RegisterToken stores the metadata for a token and records it in the token
// index.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := normaliseSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if existing, err := m.Token(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("token %s already registered", normalized)
	}
	meta := &TokenMetadata{Symbol: normalized, Name: name, Decimals: decimals}
	if err := m.KVPut(TokenKey(normalized), meta); err != nil {
		return err
	}
	return m.KVAppendString(tokenListKey, normalized)
}

// Token retrieves metadata for a registered token, or nil.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	meta := new(TokenMetadata)
	ok, err := m.KVGet(TokenKey(symbol), meta)
	if err != nil || !ok {
		return nil, err
	}
	return meta, nil
}

// TokenList returns all registered token symbols in sorted order.
func (m *Manager) TokenList() ([]string, error) {
	var list []string
	if _, err := m.KVGet(tokenListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) requireToken(symbol string) error {
	meta, err := m.Token(symbol)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("%w: %s", ErrUnknownToken, normaliseSymbol(symbol))
	}
	return nil
}

// BalanceOf implements amm.TransferService.
func (m *Manager) BalanceOf(symbol string, owner ethcommon.Address) (uint64, error) {
	var balance uint64
	if _, err := m.KVGet(BalanceKey(symbol, owner), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (m *Manager) setBalance(symbol string, owner ethcommon.Address, amount uint64) error {
	return m.KVPut(BalanceKey(symbol, owner), amount)
}

// Mint credits amount to the account. It is the funding path for operators
// and tests; pools never mint.
func (m *Manager) Mint(symbol string, to ethcommon.Address, amount uint64) error {
	if err := m.requireToken(symbol); err != nil {
		return err
	}
	balance, err := m.BalanceOf(symbol, to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(balance, amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	return m.setBalance(symbol, to, sum)
}

// SetCustodian lets custodian authorise debits from account. Pool vaults are
// held this way by the pool's vault authority.
func (m *Manager) SetCustodian(account, custodian ethcommon.Address) error {
	if account == (ethcommon.Address{}) || custodian == (ethcommon.Address{}) {
		return fmt.Errorf("state: custodian and account must be non-zero")
	}
	return m.KVPut(CustodianKey(account), custodian)
}

// Custodian returns the registered custodian of account, if any.
func (m *Manager) Custodian(account ethcommon.Address) (ethcommon.Address, bool, error) {
	var custodian ethcommon.Address
	ok, err := m.KVGet(CustodianKey(account), &custodian)
	return custodian, ok, err
}

// Transfer implements amm.TransferService. The authority must be the source
// account itself or, for custodial accounts, its custodian.
func (m *Manager) Transfer(symbol string, from, to, authority ethcommon.Address, amount uint64) error {
	if err := m.requireToken(symbol); err != nil {
		return err
	}
	custodian, custodial, err := m.Custodian(from)
	if err != nil {
		return err
	}
	if custodial {
		if authority != custodian {
			return ErrTransferNotAuthorised
		}
	} else if authority != from {
		return ErrTransferNotAuthorised
	}
	if amount == 0 || from == to {
		return nil
	}
	fromBalance, err := m.BalanceOf(symbol, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientBalance, from.Hex(), fromBalance, normaliseSymbol(symbol), amount)
	}
	toBalance, err := m.BalanceOf(symbol, to)
	if err != nil {
		return err
	}
	credited, carry := bits.Add64(toBalance, amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	if err := m.setBalance(symbol, from, fromBalance-amount); err != nil {
		return err
	}
	return m.setBalance(symbol, to, credited)
}

var _ amm.TransferService = (*Manager)(nil)
