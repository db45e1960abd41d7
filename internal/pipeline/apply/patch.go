package apply

import (
	"strings"

	"PipelineSync/internal/pipeline/model"
)

// PatchFromProposed selects the fields a modified change actually carries.
// Blank strings and null amounts are absent and leave the stored value alone.
func PatchFromProposed(p model.CanonicalDeal) model.DealPatch {
	var patch model.DealPatch
	if p.Stage != "" {
		stage := p.Stage
		patch.Stage = &stage
	}
	if p.Amount.Valid {
		v := p.Amount.Decimal
		patch.Amount = &v
	}
	if p.WeightedAmount.Valid {
		v := p.WeightedAmount.Decimal
		patch.WeightedAmount = &v
	}
	if p.RecurringAmount.Valid {
		v := p.RecurringAmount.Decimal
		patch.RecurringAmount = &v
	}
	if p.ProbabilityPct != nil {
		v := clampPct(*p.ProbabilityPct)
		patch.ProbabilityPct = &v
	}
	if s := strings.TrimSpace(p.Owner); s != "" {
		patch.Owner = &s
	}
	if s := strings.TrimSpace(p.TargetPeriod); s != "" {
		patch.TargetPeriod = &s
	}
	if p.DealType != "" {
		dt := p.DealType
		patch.DealType = &dt
	}
	if p.CloseDate != nil {
		t := *p.CloseDate
		patch.CloseDate = &t
	}
	if s := strings.TrimSpace(p.Vertical); s != "" {
		patch.Vertical = &s
	}
	if s := strings.TrimSpace(p.Region); s != "" {
		patch.Region = &s
	}
	if p.Stage == model.StageClosedWon && p.Amount.Valid {
		v := p.Amount.Decimal
		patch.ConfirmedValue = &v
	}
	return patch
}

// prepareNewDeal fills defaults a create needs.
func prepareNewDeal(d model.CanonicalDeal) model.CanonicalDeal {
	if d.Stage == "" {
		d.Stage = model.StageDiscovery
	}
	if d.DealType == "" {
		d.DealType = model.DealTypeNewBusiness
	}
	if d.ProbabilityPct != nil {
		v := clampPct(*d.ProbabilityPct)
		d.ProbabilityPct = &v
	}
	if d.Stage == model.StageClosedWon {
		d.ConfirmedValue = d.Amount
	}
	return d
}

// clampPct keeps a canonical percentage in range. Canonical values are never
// re-normalized, so 1 stays 1%.
func clampPct(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
