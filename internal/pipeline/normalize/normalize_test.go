package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineSync/internal/pipeline/model"
)

func TestMapStage(t *testing.T) {
	cases := []struct {
		raw  string
		want model.Stage
	}{
		{"Win", model.StageClosedWon},
		{" closed won ", model.StageClosedWon},
		{"Closed_Won", model.StageClosedWon},
		{"LOST", model.StageClosedLost},
		{"closed lost", model.StageClosedLost},
		{"Purchasing Engaged", model.StageNegotiation},
		{"In negotiation", model.StageNegotiation},
		{"Qualification - Interested and Engaged", model.StageNegotiation},
		{"Proposal sent", model.StageProposal},
		{"Qualified", model.StageQualification},
		{"Interested", model.StageQualification},
		{"Discovery", model.StageDiscovery},
		{"No indication yet", model.StageDiscovery},
		{"something else", model.StageDiscovery},
		{"", model.StageDiscovery},
		// only the exact tokens close a deal
		{"won over by competitor", model.StageDiscovery},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, MapStage(tc.raw))
		})
	}
}

func TestNormalizeProbability(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{0, 0},
		{0.6, 60},
		{0.25, 25},
		{1, 100},
		{60, 60},
		{99.6, 100},
		{150, 100},
		{-0.2, 0},
		{-40, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeProbability(tc.raw), "raw=%v", tc.raw)
	}
}

func TestNormalizeProbabilityFixedPoint(t *testing.T) {
	// 1 is excluded on both scales: as a percentage it reads back as 100%.
	var inputs []float64
	for i := 2; i <= 100; i++ {
		inputs = append(inputs, float64(i))
	}
	for i := 0; i < 100; i++ {
		inputs = append(inputs, float64(i)/100)
	}
	for _, p := range inputs {
		once := NormalizeProbability(p)
		if once == 1 {
			continue
		}
		twice := NormalizeProbability(float64(once))
		if once == 0 {
			assert.Equal(t, 0, twice)
			continue
		}
		assert.Equal(t, once, twice, "p=%v", p)
	}
}

func TestProbabilityPtr(t *testing.T) {
	assert.Nil(t, ProbabilityPtr(nil))
	v := 0.45
	got := ProbabilityPtr(&v)
	require.NotNil(t, got)
	assert.Equal(t, 45, *got)
}

func TestMapDealType(t *testing.T) {
	assert.Equal(t, model.DealTypeRecurring, MapDealType("Recurring"))
	assert.Equal(t, model.DealTypeRenewal, MapDealType(" renewal "))
	assert.Equal(t, model.DealTypeUpsell, MapDealType("Expansion"))
	assert.Equal(t, model.DealTypeUpsell, MapDealType("UPSELL"))
	assert.Equal(t, model.DealTypeNewBusiness, MapDealType("PoC"))
	assert.Equal(t, model.DealTypeNewBusiness, MapDealType("Pilot"))
	assert.Equal(t, model.DealTypeNewBusiness, MapDealType(""))
}

func TestDeriveAccountName(t *testing.T) {
	assert.Equal(t, "Acme", DeriveAccountName("Acme: Expansion"))
	assert.Equal(t, "Globex Corp", DeriveAccountName("  Globex Corp : Renewal 2026"))
	assert.Equal(t, "Initech", DeriveAccountName("Initech platform rollout"))
	assert.Equal(t, "Unknown", DeriveAccountName("   "))
}

func TestDeal(t *testing.T) {
	prob := 0.6
	closeHint := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	row := model.ExternalDealRow{
		DealName:           " Acme: Expansion ",
		DerivedAccountName: "Acme",
		StageRaw:           "Purchasing Engaged",
		TotalAmount:        decimal.NewNullDecimal(decimal.NewFromInt(50000)),
		ProbabilityRaw:     &prob,
		Owner:              " J. Lee ",
		TargetPeriod:       "Q1'26",
		DealTypeRaw:        "Upsell",
		CloseHint:          &closeHint,
		Vertical:           "Retail",
	}

	d := Deal(row)
	assert.Equal(t, "Acme: Expansion", d.Name)
	assert.Equal(t, "Acme", d.AccountName)
	assert.Equal(t, model.StageNegotiation, d.Stage)
	require.NotNil(t, d.ProbabilityPct)
	assert.Equal(t, 60, *d.ProbabilityPct)
	assert.True(t, d.Amount.Decimal.Equal(decimal.NewFromInt(50000)))
	assert.False(t, d.WeightedAmount.Valid)
	assert.Equal(t, "J. Lee", d.Owner)
	assert.Equal(t, model.DealTypeUpsell, d.DealType)
	require.NotNil(t, d.CloseDate)
	assert.True(t, d.CloseDate.Equal(closeHint))
	assert.False(t, d.ConfirmedValue.Valid)
}

func TestDealClosedWonConfirmsValue(t *testing.T) {
	d := Deal(model.ExternalDealRow{
		DealName:    "Acme: Renewal",
		StageRaw:    "Win",
		TotalAmount: decimal.NewNullDecimal(decimal.NewFromInt(1200)),
	})
	assert.Equal(t, model.StageClosedWon, d.Stage)
	assert.Equal(t, "Acme", d.AccountName)
	assert.Empty(t, d.DealType, "a blank type cell stays absent")
	require.True(t, d.ConfirmedValue.Valid)
	assert.True(t, d.ConfirmedValue.Decimal.Equal(decimal.NewFromInt(1200)))
}

func TestDealsPreservesOrder(t *testing.T) {
	out := Deals([]model.ExternalDealRow{{DealName: "B"}, {DealName: "A"}})
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].Name)
	assert.Equal(t, "A", out[1].Name)
}
