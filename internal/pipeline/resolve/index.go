package resolve

import (
	"strings"

	"PipelineSync/internal/pipeline/model"
)

// Index is the per-run account name lookup. It is built once from the
// persisted accounts and grows only when the applier creates an account.
// An Index must not outlive the run that built it.
type Index struct {
	byKey       map[string]*model.Account
	assignments map[string]model.AccountAssignmentRow
}

func NewIndex(accounts []model.Account, assignments []model.AccountAssignmentRow) *Index {
	idx := &Index{
		byKey:       make(map[string]*model.Account, len(accounts)),
		assignments: make(map[string]model.AccountAssignmentRow, len(assignments)),
	}
	for i := range accounts {
		a := accounts[i]
		key := model.AccountKey(a.Name)
		if key == "" {
			continue
		}
		// first persisted account with a name keeps it
		if _, dup := idx.byKey[key]; dup {
			continue
		}
		idx.byKey[key] = &a
	}
	for _, as := range assignments {
		if key := model.AccountKey(as.AccountName); key != "" {
			idx.assignments[key] = as
		}
	}
	return idx
}

// Lookup resolves an account by case-insensitive exact name.
func (i *Index) Lookup(name string) (*model.Account, bool) {
	a, ok := i.byKey[model.AccountKey(name)]
	return a, ok
}

// Insert records a newly created account so later changes reuse it.
func (i *Index) Insert(a model.Account) *model.Account {
	acct := a
	i.byKey[model.AccountKey(a.Name)] = &acct
	return &acct
}

// Assignment returns the assignment row for an account name, if any.
func (i *Index) Assignment(name string) (model.AccountAssignmentRow, bool) {
	as, ok := i.assignments[model.AccountKey(name)]
	return as, ok
}

// Len is the number of indexed accounts.
func (i *Index) Len() int { return len(i.byKey) }

// AssignmentPatch builds the update needed to bring acct in line with as,
// leaving fields that already match (or that as leaves blank) untouched.
func AssignmentPatch(acct model.Account, as model.AccountAssignmentRow) model.AccountPatch {
	var p model.AccountPatch
	if s := strings.TrimSpace(as.SalesOwner); s != "" && s != acct.SalesRep {
		p.SalesRep = &s
	}
	if t := strings.TrimSpace(as.TechnicalOwner); t != "" && t != acct.TechnicalOwner {
		p.TechnicalOwner = &t
	}
	return p
}

// NewAccount is the create payload for an account first seen in the sheet.
func NewAccount(name, accountType, vertical string, as *model.AccountAssignmentRow) model.Account {
	a := model.Account{
		Name:        strings.TrimSpace(name),
		AccountType: accountType,
		Vertical:    strings.TrimSpace(vertical),
	}
	if as != nil {
		a.SalesRep = strings.TrimSpace(as.SalesOwner)
		a.TechnicalOwner = strings.TrimSpace(as.TechnicalOwner)
	}
	return a
}
