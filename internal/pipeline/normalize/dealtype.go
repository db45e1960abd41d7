package normalize

import (
	"strings"

	"PipelineSync/internal/pipeline/model"
)

// MapDealType folds sheet deal types (PoC, Pilot, New Business, Renewal,
// Recurring, Upsell, Expansion) onto the four stored types.
func MapDealType(raw string) model.DealType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "recurring":
		return model.DealTypeRecurring
	case "renewal":
		return model.DealTypeRenewal
	case "upsell", "expansion":
		return model.DealTypeUpsell
	}
	return model.DealTypeNewBusiness
}
