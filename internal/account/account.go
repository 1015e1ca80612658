// Package account implements the Account entity: a per-currency balance
// and margin snapshot, replaced atomically on each AccountState event.
package account

import "github.com/algotrade/execd/internal/ids"

// Account is the engine's view of one venue account, mutated only by
// ApplySnapshot.
type Account struct {
	AccountId ids.AccountId
	Balances  map[string]ids.Quantity
	Margins   map[string]ids.Quantity
	TsLast    ids.Timestamp
}

// New creates an Account from its first AccountState event.
func New(id ids.AccountId, balances, margins map[string]ids.Quantity, ts ids.Timestamp) *Account {
	return &Account{
		AccountId: id,
		Balances:  cloneSnapshot(balances),
		Margins:   cloneSnapshot(margins),
		TsLast:    ts,
	}
}

// ApplySnapshot replaces the account's balances and margins atomically;
// any currency absent from the new snapshot is dropped rather than
// merged, matching the venue's full-replace semantics.
func (a *Account) ApplySnapshot(balances, margins map[string]ids.Quantity, ts ids.Timestamp) {
	a.Balances = cloneSnapshot(balances)
	a.Margins = cloneSnapshot(margins)
	a.TsLast = ts
}

func cloneSnapshot(m map[string]ids.Quantity) map[string]ids.Quantity {
	out := make(map[string]ids.Quantity, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
