package ledger

import (
	"context"
	"doc-registry/internal/model"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Transfer is one executed movement of native tokens.
type Transfer struct {
	Amount int64
	From   model.Account
	To     model.Account
}

// Ledger is an in-memory native token ledger. Accounts seen for the first
// time are credited with the opening balance.
type Ledger struct {
	mu             sync.Mutex
	logger         *zap.Logger
	openingBalance int64
	balances       map[model.Account]int64
	transfers      []Transfer
}

func New(logger *zap.Logger, openingBalance int64) *Ledger {
	return &Ledger{
		logger:         logger,
		openingBalance: openingBalance,
		balances:       make(map[model.Account]int64),
	}
}

func (l *Ledger) balance(account model.Account) int64 {
	if b, ok := l.balances[account]; ok {
		return b
	}
	l.balances[account] = l.openingBalance
	return l.openingBalance
}

func (l *Ledger) Balance(account model.Account) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(account)
}

// Mint credits amount to the account.
func (l *Ledger) Mint(account model.Account, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balance(account) + amount
	return nil
}

func (l *Ledger) Transfer(_ context.Context, amount int64, from, to model.Account) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if to.IsEmpty() {
		return errors.New("transfer recipient is missing")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == 0 {
		l.transfers = append(l.transfers, Transfer{Amount: 0, From: from, To: to})
		return nil
	}

	available := l.balance(from)
	if available < amount {
		l.logger.Warn("transfer rejected", zap.String("from", from.String()), zap.Int64("amount", amount), zap.Int64("balance", available))
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, available, amount)
	}

	l.balances[from] = available - amount
	l.balances[to] = l.balance(to) + amount
	l.transfers = append(l.transfers, Transfer{Amount: amount, From: from, To: to})

	l.logger.Debug("transfer executed", zap.String("from", from.String()), zap.String("to", to.String()), zap.Int64("amount", amount))
	return nil
}

// Transfers returns the executed transfers in order.
func (l *Ledger) Transfers() []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transfer(nil), l.transfers...)
}
