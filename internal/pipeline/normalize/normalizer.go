package normalize

import (
	"strings"

	"PipelineSync/internal/pipeline/model"
)

// Deal maps one extracted row onto the canonical deal shape.
func Deal(row model.ExternalDealRow) model.CanonicalDeal {
	accountName := strings.TrimSpace(row.DerivedAccountName)
	if accountName == "" {
		accountName = DeriveAccountName(row.DealName)
	}

	d := model.CanonicalDeal{
		Name:            strings.TrimSpace(row.DealName),
		AccountName:     accountName,
		Stage:           MapStage(row.StageRaw),
		Amount:          row.TotalAmount,
		WeightedAmount:  row.WeightedAmount,
		RecurringAmount: row.RecurringAmount,
		ProbabilityPct:  ProbabilityPtr(row.ProbabilityRaw),
		Owner:           strings.TrimSpace(row.Owner),
		TargetPeriod:    strings.TrimSpace(row.TargetPeriod),
		Vertical:        strings.TrimSpace(row.Vertical),
		Region:          strings.TrimSpace(row.Region),
	}
	// a blank type stays absent so it never overwrites a stored one
	if strings.TrimSpace(row.DealTypeRaw) != "" {
		d.DealType = MapDealType(row.DealTypeRaw)
	}
	if row.CloseHint != nil {
		t := *row.CloseHint
		d.CloseDate = &t
	}
	// a won deal locks in its realized value
	if d.Stage == model.StageClosedWon {
		d.ConfirmedValue = d.Amount
	}
	return d
}

// Deals normalizes every row, preserving order.
func Deals(rows []model.ExternalDealRow) []model.CanonicalDeal {
	out := make([]model.CanonicalDeal, 0, len(rows))
	for _, r := range rows {
		out = append(out, Deal(r))
	}
	return out
}
