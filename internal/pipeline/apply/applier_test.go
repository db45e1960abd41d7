package apply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/store/memory"
)

func newChange(name, account string) model.ChangeRecord {
	d := model.CanonicalDeal{
		Name:        name,
		AccountName: account,
		Stage:       model.StageProposal,
		Amount:      decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		DealType:    model.DealTypeNewBusiness,
	}
	return model.ChangeRecord{
		ID:          "new_" + model.NaturalKey(name),
		NaturalKey:  model.NaturalKey(name),
		DealName:    name,
		AccountName: account,
		ChangeType:  model.ChangeNew,
		Proposed:    &d,
	}
}

func existingChange(st *memory.Store, id string, ct model.ChangeType, proposed *model.CanonicalDeal) model.ChangeRecord {
	cur, _ := st.Deal(id)
	return model.ChangeRecord{
		ID:          id,
		NaturalKey:  model.NaturalKey(cur.Name),
		DealName:    cur.Name,
		AccountName: cur.AccountName,
		ChangeType:  ct,
		Current:     &cur,
		Proposed:    proposed,
	}
}

func TestApplyPartialFailureContinues(t *testing.T) {
	st := memory.New()
	st.SetFault(func(op, key string) error {
		if op == memory.OpCreateDeal && key == "Globex: Pilot" {
			return errors.New("constraint violation")
		}
		return nil
	})

	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{
		newChange("Acme: Expansion", "Acme"),
		newChange("Globex: Pilot", "Globex"),
		newChange("Initech: Rollout", "Initech"),
	}})

	assert.Equal(t, 2, out.Created)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "Globex: Pilot")
	assert.Contains(t, out.Errors[0], "constraint violation")
	assert.True(t, out.Succeeded())

	_, ok := st.DealByName("Initech: Rollout")
	assert.True(t, ok, "changes after a failure still run")
	_, ok = st.DealByName("Globex: Pilot")
	assert.False(t, ok)
}

func TestApplyCreatesAccountOnceAndReusesIt(t *testing.T) {
	st := memory.New()
	out := New(st).Apply(context.Background(), Request{
		Changes: []model.ChangeRecord{
			newChange("Acme: One", "Acme"),
			newChange("Acme: Two", "acme"),
		},
		Assignments: []model.AccountAssignmentRow{{AccountName: "Acme", SalesOwner: "J. Lee"}},
	})

	assert.Equal(t, 2, out.Created)
	assert.Equal(t, 1, out.AccountsUpdated)
	assert.Equal(t, 1, st.Calls(memory.OpCreateAccount))

	acct, ok := st.AccountByName("Acme")
	require.True(t, ok)
	assert.Equal(t, "J. Lee", acct.SalesRep)
	assert.Equal(t, "Prospect", acct.AccountType)

	one, _ := st.DealByName("Acme: One")
	two, _ := st.DealByName("Acme: Two")
	assert.Equal(t, acct.ID, one.AccountID)
	assert.Equal(t, acct.ID, two.AccountID)
}

func TestApplyFallsBackToRecordAssignment(t *testing.T) {
	st := memory.New()
	globex := st.SeedAccount(model.Account{Name: "Globex", SalesRep: "Old"})
	id := st.SeedDeal(globex, model.CanonicalDeal{Name: "Globex: Renewal", Stage: model.StageDiscovery})

	created := newChange("Acme: One", "Acme")
	created.Assignment = &model.AccountAssignmentRow{AccountName: "Acme", SalesOwner: "J. Lee"}
	modified := existingChange(st, id, model.ChangeModified, &model.CanonicalDeal{Name: "Globex: Renewal", Stage: model.StageProposal})
	modified.Assignment = &model.AccountAssignmentRow{AccountName: "Globex", SalesOwner: "K. Ito"}

	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{created, modified}})

	assert.Empty(t, out.Errors)
	assert.Equal(t, 2, out.AccountsUpdated)
	acme, ok := st.AccountByName("Acme")
	require.True(t, ok)
	assert.Equal(t, "J. Lee", acme.SalesRep)
	acct, _ := st.AccountByName("Globex")
	assert.Equal(t, "K. Ito", acct.SalesRep)

	// a request-level row wins over the one attached to the change
	st = memory.New()
	created = newChange("Acme: One", "Acme")
	created.Assignment = &model.AccountAssignmentRow{AccountName: "Acme", SalesOwner: "Stale"}
	New(st).Apply(context.Background(), Request{
		Changes:     []model.ChangeRecord{created},
		Assignments: []model.AccountAssignmentRow{{AccountName: "ACME", SalesOwner: "J. Lee"}},
	})
	acme, _ = st.AccountByName("Acme")
	assert.Equal(t, "J. Lee", acme.SalesRep)
}

func TestApplyModifiedWritesRegionAndCloseDate(t *testing.T) {
	st := memory.New()
	acct := st.SeedAccount(model.Account{Name: "Acme"})
	id := st.SeedDeal(acct, model.CanonicalDeal{Name: "Acme: Deal", Stage: model.StageProposal, Region: "EMEA"})

	closeDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{
		existingChange(st, id, model.ChangeModified, &model.CanonicalDeal{
			Name:            "Acme: Deal",
			Region:          "APAC",
			CloseDate:       &closeDate,
			RecurringAmount: decimal.NewNullDecimal(decimal.NewFromInt(20000)),
		}),
	}})

	assert.Equal(t, 1, out.Updated)
	d, _ := st.Deal(id)
	assert.Equal(t, "APAC", d.Region)
	require.NotNil(t, d.CloseDate)
	assert.True(t, d.CloseDate.Equal(closeDate))
	assert.True(t, d.RecurringAmount.Decimal.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, model.StageProposal, d.Stage, "absent stage is left alone")
}

func TestApplyRemovedIsSoftDelete(t *testing.T) {
	st := memory.New()
	acct := st.SeedAccount(model.Account{Name: "Acme"})
	id := st.SeedDeal(acct, model.CanonicalDeal{Name: "Acme: Old", Stage: model.StageProposal})

	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{
		existingChange(st, id, model.ChangeRemoved, nil),
	}})

	assert.Equal(t, 1, out.SoftDeleted)
	assert.Empty(t, out.Errors)
	d, ok := st.Deal(id)
	require.True(t, ok, "removed deals are never deleted")
	assert.Equal(t, model.StageClosedLost, d.Stage)
}

func TestApplyModifiedIsIdempotent(t *testing.T) {
	st := memory.New()
	acct := st.SeedAccount(model.Account{Name: "Acme"})
	id := st.SeedDeal(acct, model.CanonicalDeal{
		Name:   "Acme: Deal",
		Stage:  model.StageDiscovery,
		Amount: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Owner:  "J. Lee",
	})

	p := 60
	proposed := model.CanonicalDeal{
		Name:           "Acme: Deal",
		Stage:          model.StageClosedWon,
		Amount:         decimal.NewNullDecimal(decimal.NewFromInt(250)),
		ProbabilityPct: &p,
	}
	req := Request{Changes: []model.ChangeRecord{existingChange(st, id, model.ChangeModified, &proposed)}}

	a := New(st)
	first := a.Apply(context.Background(), req)
	require.Equal(t, 1, first.Updated)
	after1, _ := st.Deal(id)

	second := a.Apply(context.Background(), req)
	require.Equal(t, 1, second.Updated)
	after2, _ := st.Deal(id)

	assert.Equal(t, after1, after2)
	assert.Equal(t, model.StageClosedWon, after2.Stage)
	assert.Equal(t, "J. Lee", after2.Owner, "absent fields are untouched")
	require.True(t, after2.ConfirmedValue.Valid)
	assert.True(t, after2.ConfirmedValue.Decimal.Equal(decimal.NewFromInt(250)))
	require.NotNil(t, after2.ProbabilityPct)
	assert.Equal(t, 60, *after2.ProbabilityPct)
}

func TestApplySkipOptionsAndUnchanged(t *testing.T) {
	st := memory.New()
	acct := st.SeedAccount(model.Account{Name: "Acme"})
	gone := st.SeedDeal(acct, model.CanonicalDeal{Name: "Acme: Gone", Stage: model.StageProposal})
	same := st.SeedDeal(acct, model.CanonicalDeal{Name: "Acme: Same", Stage: model.StageProposal})

	out := New(st).Apply(context.Background(), Request{
		Changes: []model.ChangeRecord{
			newChange("Acme: New", "Acme"),
			existingChange(st, gone, model.ChangeRemoved, nil),
			existingChange(st, same, model.ChangeUnchanged, nil),
		},
		Options: model.ApplyOptions{SkipNew: true, SkipRemoved: true},
	})

	assert.Equal(t, 3, out.Skipped)
	assert.Zero(t, out.Created)
	assert.Zero(t, out.SoftDeleted)
	assert.Empty(t, out.Errors)
	assert.True(t, out.Succeeded())
	d, _ := st.Deal(gone)
	assert.Equal(t, model.StageProposal, d.Stage)
}

func TestApplyAssignmentSweep(t *testing.T) {
	st := memory.New()
	acme := st.SeedAccount(model.Account{Name: "Acme", SalesRep: "Old"})
	st.SeedAccount(model.Account{Name: "Globex", SalesRep: "K. Ito"})

	out := New(st).Apply(context.Background(), Request{
		Assignments: []model.AccountAssignmentRow{
			{AccountName: "acme", SalesOwner: "J. Lee", TechnicalOwner: "R. Patel"},
			{AccountName: "Globex", SalesOwner: "K. Ito"},
			{AccountName: "Nowhere Inc", SalesOwner: "X"},
		},
	})

	assert.Equal(t, 1, out.AccountsUpdated)
	assert.Empty(t, out.Errors)
	assert.Equal(t, 1, st.Calls(memory.OpUpdateAccount), "matching accounts are not written")

	acct, _ := st.AccountByName("Acme")
	assert.Equal(t, acme, acct.ID)
	assert.Equal(t, "J. Lee", acct.SalesRep)
	assert.Equal(t, "R. Patel", acct.TechnicalOwner)
	_, ok := st.AccountByName("Nowhere Inc")
	assert.False(t, ok, "the sweep never creates accounts")
}

func TestApplySweepFailureIsWarning(t *testing.T) {
	st := memory.New()
	st.SeedAccount(model.Account{Name: "Acme"})
	st.SetFault(func(op, key string) error {
		if op == memory.OpUpdateAccount {
			return errors.New("timeout")
		}
		return nil
	})

	out := New(st).Apply(context.Background(), Request{
		Assignments: []model.AccountAssignmentRow{{AccountName: "Acme", SalesOwner: "J. Lee"}},
	})
	assert.Empty(t, out.Errors)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Acme")
	assert.Zero(t, out.AccountsUpdated)
	assert.True(t, out.Succeeded())
}

func TestApplyAccountIndexFailure(t *testing.T) {
	st := memory.New()
	acct := st.SeedAccount(model.Account{Name: "Acme"})
	id := st.SeedDeal(acct, model.CanonicalDeal{Name: "Acme: Deal", Stage: model.StageDiscovery})
	change := existingChange(st, id, model.ChangeModified, &model.CanonicalDeal{Name: "Acme: Deal", Stage: model.StageProposal})

	st.SetFault(func(op, key string) error {
		if op == memory.OpListAccounts {
			return errors.New("db down")
		}
		return nil
	})

	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{
		newChange("Acme: New", "Acme"),
		change,
	}})
	assert.Zero(t, out.Created)
	assert.Equal(t, 1, out.Updated, "updates do not need the account index")
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "Acme: New")
}

func TestApplyAllFailedIsNotSuccess(t *testing.T) {
	st := memory.New()
	st.SetFault(func(op, key string) error {
		if op == memory.OpCreateAccount {
			return errors.New("read only")
		}
		return nil
	})
	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{newChange("Acme: New", "Acme")}})
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Failed to create account for Acme: read only", out.Errors[0])
	assert.False(t, out.Succeeded())
}

func TestApplyRecoversPanics(t *testing.T) {
	st := memory.New()
	st.SetFault(func(op, key string) error {
		if op == memory.OpCreateDeal && key == "Acme: Boom" {
			panic("driver exploded")
		}
		return nil
	})
	out := New(st).Apply(context.Background(), Request{Changes: []model.ChangeRecord{
		newChange("Acme: Boom", "Acme"),
		newChange("Acme: Fine", "Acme"),
	}})
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Error processing Acme: Boom: driver exploded", out.Errors[0])
	assert.Equal(t, 1, out.Created)
}

func TestPatchFromProposed(t *testing.T) {
	assert.True(t, PatchFromProposed(model.CanonicalDeal{}).IsEmpty())

	over := 140
	p := PatchFromProposed(model.CanonicalDeal{
		Stage:          model.StageNegotiation,
		Owner:          "  ",
		ProbabilityPct: &over,
	})
	require.NotNil(t, p.Stage)
	assert.Nil(t, p.Owner)
	assert.Nil(t, p.Amount)
	assert.Nil(t, p.ConfirmedValue)
	require.NotNil(t, p.ProbabilityPct)
	assert.Equal(t, 100, *p.ProbabilityPct)

	p = PatchFromProposed(model.CanonicalDeal{Region: " APAC "})
	require.NotNil(t, p.Region)
	assert.Equal(t, "APAC", *p.Region)
	assert.Nil(t, p.DealType, "absent type is not written")
}
