package pipeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"PipelineSync/internal/pipeline/apply"
	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/store/memory"
)

func workbook(t *testing.T, pipeline, assignments [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	write := func(sheet string, rows [][]interface{}) {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(sheet, cell, &r))
		}
	}
	require.NoError(t, f.SetSheetName("Sheet1", "Pipeline"))
	write("Pipeline", pipeline)
	if assignments != nil {
		_, err := f.NewSheet("Account Assignments")
		require.NoError(t, err)
		write("Account Assignments", assignments)
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

var assignmentHeader = []interface{}{"Commercial Accounts", "Sales Manager", "Account Manager"}

func TestEngineAcmeScenario(t *testing.T) {
	st := memory.New()
	eng := NewEngine(st)
	ctx := context.Background()

	in := workbook(t,
		[][]interface{}{
			{"Deal Name", "Deal Stage", "Total Amount", "Conservative Probability"},
			{"Acme: Expansion", "Purchasing Engaged", 50000, 0.6},
		},
		[][]interface{}{assignmentHeader, {"Acme", "J. Lee"}},
	)
	parsed, err := eng.Parse(in, "pipeline.xlsx")
	require.NoError(t, err)
	require.Len(t, parsed.Deals, 1)
	assert.Equal(t, model.StageNegotiation, parsed.Deals[0].Stage)
	require.NotNil(t, parsed.Deals[0].ProbabilityPct)
	assert.Equal(t, 60, *parsed.Deals[0].ProbabilityPct)

	preview, err := eng.Preview(ctx, PreviewRequest{Deals: parsed.Deals, Assignments: parsed.Assignments})
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Summary.New)
	assert.Equal(t, 1, preview.Summary.Total)

	res := eng.Apply(ctx, apply.Request{Changes: preview.Changes, Assignments: parsed.Assignments}, "test")
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Results.Created)
	assert.Equal(t, 1, res.Results.AccountsUpdated)

	acct, ok := st.AccountByName("Acme")
	require.True(t, ok)
	assert.Equal(t, "J. Lee", acct.SalesRep)
}

func TestEngineEndToEnd(t *testing.T) {
	st := memory.New()
	fixed := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	eng := NewEngine(st, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	in := workbook(t,
		[][]interface{}{
			{"Q1 pipeline export"},
			{"Deal Name", "Deal Stage", "Total Amount", "Weighted Amount Conservative ", "Conservative Probability", "Deal Owner", "Quarter to Close", "Deal Type"},
			{"Acme Corp: Platform Expansion", "Negotiation", "50000", "30000", "60%", "J. Lee", "Q1'26", "Expansion"},
		},
		[][]interface{}{assignmentHeader, {"Acme Corp", "J. Lee", "R. Patel"}},
	)
	parsed, err := eng.Parse(in, "pipeline.xlsx")
	require.NoError(t, err)
	require.Len(t, parsed.Deals, 1)
	require.Len(t, parsed.Assignments, 1)

	deal := parsed.Deals[0]
	assert.Equal(t, "Acme Corp", deal.AccountName)
	assert.Equal(t, model.StageNegotiation, deal.Stage)
	assert.Equal(t, model.DealTypeUpsell, deal.DealType)
	require.NotNil(t, deal.ProbabilityPct)
	assert.Equal(t, 60, *deal.ProbabilityPct)
	assert.Equal(t, 1, parsed.Summary.Active)
	assert.True(t, parsed.Summary.UpsellWeighted.Equal(decimal.NewFromInt(30000)))

	preview, err := eng.Preview(ctx, PreviewRequest{Deals: parsed.Deals, Assignments: parsed.Assignments})
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Summary.New)
	assert.Equal(t, fixed, preview.Timestamp)
	assert.Empty(t, preview.DuplicateKeys)
	require.Len(t, preview.Changes, 1)
	require.NotNil(t, preview.Changes[0].Assignment)

	res := eng.Apply(ctx, apply.Request{Changes: preview.Changes, Assignments: parsed.Assignments}, "pipeline.xlsx")
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Results.Created)
	assert.Equal(t, 1, res.Results.AccountsUpdated)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "Created 1, updated 0, removed 0 deals. Updated 1 account assignments.", res.Message)

	acct, ok := st.AccountByName("Acme Corp")
	require.True(t, ok)
	assert.Equal(t, "J. Lee", acct.SalesRep)
	assert.Equal(t, "R. Patel", acct.TechnicalOwner)

	stored, ok := st.DealByName("Acme Corp: Platform Expansion")
	require.True(t, ok)
	assert.Equal(t, model.StageNegotiation, stored.Stage)
	require.NotNil(t, stored.ProbabilityPct)
	assert.Equal(t, 60, *stored.ProbabilityPct)
	assert.Equal(t, acct.ID, stored.AccountID)

	// the same upload a second time is a no-op
	again, err := eng.Preview(ctx, PreviewRequest{Deals: parsed.Deals, Assignments: parsed.Assignments})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Summary.Unchanged)
	assert.Zero(t, again.Summary.New)
	assert.Zero(t, again.Summary.Modified)
}

func TestEngineRemovedAndSnapshot(t *testing.T) {
	st := memory.New()
	acct := st.SeedAccount(model.Account{Name: "Initech"})
	id := st.SeedDeal(acct, model.CanonicalDeal{Name: "Initech: Renewal", Stage: model.StageProposal})
	eng := NewEngine(st)
	ctx := context.Background()

	snap, err := eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Summary.Unchanged)
	assert.NotNil(t, snap.DuplicateKeys)

	preview, err := eng.Preview(ctx, PreviewRequest{})
	require.NoError(t, err)
	require.Len(t, preview.Changes, 1)
	assert.Equal(t, model.ChangeRemoved, preview.Changes[0].ChangeType)

	res := eng.Apply(ctx, apply.Request{Changes: preview.Changes}, "test")
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Results.SoftDeleted)
	d, ok := st.Deal(id)
	require.True(t, ok)
	assert.Equal(t, model.StageClosedLost, d.Stage)

	runs, err := eng.History(ctx, 10, 0)
	assert.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSummarize(t *testing.T) {
	amt := func(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }
	deals := []model.CanonicalDeal{
		{Stage: model.StageProposal, DealType: model.DealTypeRenewal, Amount: amt(100), WeightedAmount: amt(50)},
		{Stage: model.StageDiscovery, DealType: model.DealTypeRecurring, Amount: amt(200), WeightedAmount: amt(20)},
		{Stage: model.StageClosedWon, DealType: model.DealTypeUpsell, Amount: amt(300), WeightedAmount: amt(300)},
		{Stage: model.StageClosedLost, Amount: amt(400)},
	}
	s := Summarize(deals, 2)
	assert.Equal(t, 4, s.TotalDeals)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, 1, s.ClosedWon)
	assert.Equal(t, 1, s.ClosedLost)
	assert.Equal(t, 2, s.AccountAssignments)
	assert.True(t, s.TotalPipeline.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.TotalWeighted.Equal(decimal.NewFromInt(70)))
	assert.True(t, s.RenewalWeighted.Equal(decimal.NewFromInt(70)))
	assert.True(t, s.UpsellWeighted.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.NewBusinessWeighted.IsZero())
	assert.Equal(t, 1, s.ByDealType[model.DealTypeUpsell].Count)
	assert.Equal(t, 1, s.ByDealType[model.DealTypeNewBusiness].Count, "blank type totals as new business")
	assert.NotContains(t, s.ByDealType, model.DealType(""))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Created 2, updated 1, removed 0 deals. Updated 0 account assignments. (1 errors)",
		Message(model.ApplyOutcome{Created: 2, Updated: 1, Errors: []string{"boom"}}))
	assert.Equal(t, "Created 0, updated 0, removed 3 deals. Updated 0 account assignments.",
		Message(model.ApplyOutcome{SoftDeleted: 3}))
}
