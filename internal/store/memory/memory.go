// Package memory is an in-process Store used by tests and dry runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/store"
)

// Operation names passed to a Fault hook.
const (
	OpListDeals     = "list_deals"
	OpListAccounts  = "list_accounts"
	OpCreateAccount = "create_account"
	OpUpdateAccount = "update_account"
	OpCreateDeal    = "create_deal"
	OpUpdateDeal    = "update_deal"
)

// Fault lets a test fail a single call. key is the record name for creates
// and the id for updates; lists pass "".
type Fault func(op, key string) error

type Store struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	deals    map[string]model.PersistedDeal
	fault    Fault
	calls    map[string]int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts: map[string]model.Account{},
		deals:    map[string]model.PersistedDeal{},
		calls:    map[string]int{},
	}
}

// SetFault installs (or with nil removes) the fault hook.
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Calls reports how many times op was invoked, failed calls included.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SeedAccount inserts an account directly and returns its id.
func (s *Store) SeedAccount(a model.Account) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts[a.ID] = a
	return a.ID
}

// SeedDeal inserts a deal directly under accountID and returns its id.
func (s *Store) SeedDeal(accountID string, d model.CanonicalDeal) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.deals[id] = model.PersistedDeal{
		ID:            id,
		AccountID:     accountID,
		AccountName:   s.accounts[accountID].Name,
		CanonicalDeal: d,
	}
	return id
}

// Deal returns a stored deal by id.
func (s *Store) Deal(id string) (model.PersistedDeal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	return d, ok
}

// DealByName returns the first stored deal with the given natural key.
func (s *Store) DealByName(name string) (model.PersistedDeal, bool) {
	deals, _ := s.ListDeals(context.Background())
	key := model.NaturalKey(name)
	for _, d := range deals {
		if model.NaturalKey(d.Name) == key {
			return d, true
		}
	}
	return model.PersistedDeal{}, false
}

// AccountByName returns the first stored account with the given name.
func (s *Store) AccountByName(name string) (model.Account, bool) {
	accts, _ := s.ListAccounts(context.Background())
	key := model.AccountKey(name)
	for _, a := range accts {
		if model.AccountKey(a.Name) == key {
			return a, true
		}
	}
	return model.Account{}, false
}

func (s *Store) enter(ctx context.Context, op, key string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fault != nil {
		return s.fault(op, key)
	}
	return nil
}

func (s *Store) ListDeals(ctx context.Context) ([]model.PersistedDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpListDeals, ""); err != nil {
		return nil, err
	}
	out := make([]model.PersistedDeal, 0, len(s.deals))
	for _, d := range s.deals {
		d.AccountName = s.accounts[d.AccountID].Name
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpListAccounts, ""); err != nil {
		return nil, err
	}
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCreateAccount, a.Name); err != nil {
		return "", err
	}
	a.ID = uuid.NewString()
	a.Name = strings.TrimSpace(a.Name)
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpUpdateAccount, id); err != nil {
		return err
	}
	a, ok := s.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	patch.ApplyTo(&a)
	s.accounts[id] = a
	return nil
}

func (s *Store) CreateDeal(ctx context.Context, accountID string, d model.CanonicalDeal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCreateDeal, d.Name); err != nil {
		return "", err
	}
	acct, ok := s.accounts[accountID]
	if !ok {
		return "", store.ErrNotFound
	}
	id := uuid.NewString()
	d.AccountName = acct.Name
	s.deals[id] = model.PersistedDeal{ID: id, AccountID: accountID, AccountName: acct.Name, CanonicalDeal: d}
	return id, nil
}

func (s *Store) UpdateDeal(ctx context.Context, id string, patch model.DealPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpUpdateDeal, id); err != nil {
		return err
	}
	d, ok := s.deals[id]
	if !ok {
		return store.ErrNotFound
	}
	patch.ApplyTo(&d.CanonicalDeal)
	s.deals[id] = d
	return nil
}

func (s *Store) Close() error { return nil }
