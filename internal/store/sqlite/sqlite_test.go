package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDealRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	acct, err := s.CreateAccount(ctx, model.Account{Name: " Acme Corp ", AccountType: "Prospect", SalesRep: "J. Lee"})
	require.NoError(t, err)

	p := 60
	closeDate := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	id, err := s.CreateDeal(ctx, acct, model.CanonicalDeal{
		Name:           "Acme Corp: Platform Expansion",
		Stage:          model.StageNegotiation,
		Amount:         decimal.NewNullDecimal(decimal.RequireFromString("50000.50")),
		WeightedAmount: decimal.NewNullDecimal(decimal.NewFromInt(30000)),
		ProbabilityPct: &p,
		Owner:          "J. Lee",
		TargetPeriod:   "Q1'26",
		DealType:       model.DealTypeUpsell,
		CloseDate:      &closeDate,
	})
	require.NoError(t, err)

	deals, err := s.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	d := deals[0]
	assert.Equal(t, id, d.ID)
	assert.Equal(t, acct, d.AccountID)
	assert.Equal(t, "Acme Corp", d.AccountName)
	assert.Equal(t, model.StageNegotiation, d.Stage)
	assert.True(t, d.Amount.Decimal.Equal(decimal.RequireFromString("50000.5")))
	assert.False(t, d.RecurringAmount.Valid)
	assert.False(t, d.ConfirmedValue.Valid)
	require.NotNil(t, d.ProbabilityPct)
	assert.Equal(t, 60, *d.ProbabilityPct)
	require.NotNil(t, d.CloseDate)
	assert.True(t, closeDate.Equal(*d.CloseDate))
	assert.Equal(t, model.DealTypeUpsell, d.DealType)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "J. Lee", accounts[0].SalesRep)
	assert.Empty(t, accounts[0].TechnicalOwner)
}

func TestPartialUpdate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	acct, err := s.CreateAccount(ctx, model.Account{Name: "Initech"})
	require.NoError(t, err)
	id, err := s.CreateDeal(ctx, acct, model.CanonicalDeal{
		Name:   "Initech: Renewal",
		Stage:  model.StageProposal,
		Amount: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Owner:  "K. Ito",
	})
	require.NoError(t, err)

	lost := model.StageClosedLost
	require.NoError(t, s.UpdateDeal(ctx, id, model.DealPatch{Stage: &lost}))
	require.NoError(t, s.UpdateDeal(ctx, id, model.DealPatch{}))

	deals, err := s.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, model.StageClosedLost, deals[0].Stage)
	assert.Equal(t, "K. Ito", deals[0].Owner)
	assert.True(t, deals[0].Amount.Decimal.Equal(decimal.NewFromInt(100)))

	tech := "R. Patel"
	require.NoError(t, s.UpdateAccount(ctx, acct, model.AccountPatch{TechnicalOwner: &tech}))
	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "R. Patel", accounts[0].TechnicalOwner)
}

func TestUpdateMissing(t *testing.T) {
	s := openTemp(t)
	won := model.StageClosedWon
	err := s.UpdateDeal(context.Background(), "missing", model.DealPatch{Stage: &won})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateDealUnknownAccount(t *testing.T) {
	s := openTemp(t)
	_, err := s.CreateDeal(context.Background(), "nope", model.CanonicalDeal{Name: "X", Stage: model.StageDiscovery})
	assert.Error(t, err)
}
