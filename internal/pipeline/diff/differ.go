package diff

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"PipelineSync/internal/config"
	"PipelineSync/internal/pipeline/model"
)

type Options struct {
	// WeightedTolerance absorbs rounding drift between the sheet's weighted
	// value and the stored one.
	WeightedTolerance decimal.Decimal
	Currency          string
}

func DefaultOptions() Options {
	return Options{
		WeightedTolerance: decimal.NewFromInt(config.WeightedTolerance),
		Currency:          config.DefaultCurrency,
	}
}

type Result struct {
	Changes []model.ChangeRecord `json:"changes"`
	// DuplicateKeys lists natural keys shared by more than one deal on either
	// side. Such deals alias to a single change record.
	DuplicateKeys []string `json:"duplicate_keys,omitempty"`
}

type Summary struct {
	New       int `json:"new"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Total     int `json:"total"`
}

// Compute classifies every natural key in external ∪ persisted exactly once.
func Compute(external []model.CanonicalDeal, persisted []model.PersistedDeal, assignments []model.AccountAssignmentRow, opts Options) Result {
	if opts.Currency == "" {
		opts.Currency = config.DefaultCurrency
	}
	dupes := map[string]bool{}

	incoming := make(map[string]model.CanonicalDeal, len(external))
	for _, d := range external {
		key := model.NaturalKey(d.Name)
		if key == "" {
			continue
		}
		if _, seen := incoming[key]; seen {
			dupes[key] = true
		}
		incoming[key] = d
	}

	stored := make([]model.PersistedDeal, len(persisted))
	copy(stored, persisted)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].ID < stored[j].ID })
	existing := make(map[string]model.PersistedDeal, len(stored))
	for _, p := range stored {
		key := model.NaturalKey(p.Name)
		if _, seen := existing[key]; seen {
			dupes[key] = true
			continue
		}
		existing[key] = p
	}

	byAccount := make(map[string]model.AccountAssignmentRow, len(assignments))
	for _, a := range assignments {
		byAccount[model.AccountKey(a.AccountName)] = a
	}
	attach := func(rec *model.ChangeRecord) {
		if a, ok := byAccount[model.AccountKey(rec.AccountName)]; ok {
			as := a
			rec.Assignment = &as
		}
	}

	changes := make([]model.ChangeRecord, 0, len(incoming)+len(existing))
	for key, deal := range incoming {
		proposed := deal
		cur, ok := existing[key]
		if !ok {
			rec := model.ChangeRecord{
				ID:          "new_" + key,
				NaturalKey:  key,
				DealName:    deal.Name,
				AccountName: deal.AccountName,
				ChangeType:  model.ChangeNew,
				Proposed:    &proposed,
			}
			attach(&rec)
			changes = append(changes, rec)
			continue
		}

		current := cur
		rec := model.ChangeRecord{
			ID:          cur.ID,
			NaturalKey:  key,
			DealName:    deal.Name,
			AccountName: firstNonEmpty(cur.AccountName, deal.AccountName),
			Current:     &current,
		}
		diffs := FieldDiffs(cur, deal, opts)
		if len(diffs) == 0 {
			rec.ChangeType = model.ChangeUnchanged
		} else {
			merged := mergeProposed(deal, cur)
			rec.ChangeType = model.ChangeModified
			rec.Proposed = &merged
			rec.FieldDiffs = diffs
		}
		attach(&rec)
		changes = append(changes, rec)
	}

	for key, cur := range existing {
		if _, ok := incoming[key]; ok {
			continue
		}
		current := cur
		changes = append(changes, model.ChangeRecord{
			ID:          cur.ID,
			NaturalKey:  key,
			DealName:    cur.Name,
			AccountName: cur.AccountName,
			ChangeType:  model.ChangeRemoved,
			Current:     &current,
		})
	}

	SortForDisplay(changes)
	res := Result{Changes: changes}
	for k := range dupes {
		res.DuplicateKeys = append(res.DuplicateKeys, k)
	}
	sort.Strings(res.DuplicateKeys)
	return res
}

// Snapshot tags every persisted deal as unchanged; it backs the preview
// request that carries no sheet.
func Snapshot(persisted []model.PersistedDeal) []model.ChangeRecord {
	changes := make([]model.ChangeRecord, 0, len(persisted))
	for _, p := range persisted {
		current := p
		changes = append(changes, model.ChangeRecord{
			ID:          p.ID,
			NaturalKey:  model.NaturalKey(p.Name),
			DealName:    p.Name,
			AccountName: p.AccountName,
			ChangeType:  model.ChangeUnchanged,
			Current:     &current,
		})
	}
	SortForDisplay(changes)
	return changes
}

var displayOrder = map[model.ChangeType]int{
	model.ChangeNew:       0,
	model.ChangeModified:  1,
	model.ChangeRemoved:   2,
	model.ChangeUnchanged: 3,
}

// SortForDisplay orders new → modified → removed → unchanged, then by key.
func SortForDisplay(changes []model.ChangeRecord) {
	sort.SliceStable(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if displayOrder[a.ChangeType] != displayOrder[b.ChangeType] {
			return displayOrder[a.ChangeType] < displayOrder[b.ChangeType]
		}
		if a.NaturalKey != b.NaturalKey {
			return a.NaturalKey < b.NaturalKey
		}
		return a.ID < b.ID
	})
}

func Summarize(changes []model.ChangeRecord) Summary {
	var s Summary
	for _, c := range changes {
		switch c.ChangeType {
		case model.ChangeNew:
			s.New++
		case model.ChangeModified:
			s.Modified++
		case model.ChangeUnchanged:
			s.Unchanged++
		case model.ChangeRemoved:
			s.Removed++
		}
	}
	s.Total = len(changes)
	return s
}

// FieldDiffs compares the fields the sheet actually carries. Absent sheet
// values never produce a diff.
func FieldDiffs(cur model.PersistedDeal, next model.CanonicalDeal, opts Options) []model.FieldDiff {
	var diffs []model.FieldDiff
	add := func(field, label, from, to string) {
		diffs = append(diffs, model.FieldDiff{
			Field:    field,
			Current:  from,
			Proposed: to,
			Message:  fmt.Sprintf("%s: %s → %s", label, from, to),
		})
	}

	if next.Stage != "" && !sameText(string(next.Stage), string(cur.Stage)) {
		add("stage", "Stage", orNone(string(cur.Stage)), string(next.Stage))
	}
	if next.Amount.Valid && !sameAmount(cur.Amount, next.Amount) {
		add("amount", "Value", formatMoney(cur.Amount, opts.Currency), formatMoney(next.Amount, opts.Currency))
	}
	if next.RecurringAmount.Valid && !sameAmount(cur.RecurringAmount, next.RecurringAmount) {
		add("recurring_amount", "Recurring", formatMoney(cur.RecurringAmount, opts.Currency), formatMoney(next.RecurringAmount, opts.Currency))
	}
	if next.Owner != "" && !sameText(next.Owner, cur.Owner) {
		add("owner", "Owner", orNone(cur.Owner), next.Owner)
	}
	if next.TargetPeriod != "" && !sameText(next.TargetPeriod, cur.TargetPeriod) {
		add("target_period", "Quarter", orNone(cur.TargetPeriod), next.TargetPeriod)
	}
	if next.DealType != "" && !sameText(string(next.DealType), string(cur.DealType)) {
		add("deal_type", "Type", orNone(string(cur.DealType)), string(next.DealType))
	}
	if next.CloseDate != nil && formatDate(next.CloseDate) != formatDate(cur.CloseDate) {
		add("close_date", "Close Date", orNone(formatDate(cur.CloseDate)), formatDate(next.CloseDate))
	}
	if next.Vertical != "" && !sameText(next.Vertical, cur.Vertical) {
		add("vertical", "Vertical", orNone(cur.Vertical), next.Vertical)
	}
	if next.Region != "" && !sameText(next.Region, cur.Region) {
		add("region", "Region", orNone(cur.Region), next.Region)
	}
	if next.ProbabilityPct != nil {
		existing := 0
		if cur.ProbabilityPct != nil {
			existing = *cur.ProbabilityPct
		}
		if *next.ProbabilityPct != existing {
			add("probability_pct", "Probability", strconv.Itoa(existing)+"%", strconv.Itoa(*next.ProbabilityPct)+"%")
		}
	}
	if next.WeightedAmount.Valid {
		if !cur.WeightedAmount.Valid || next.WeightedAmount.Decimal.Sub(cur.WeightedAmount.Decimal).Abs().GreaterThan(opts.WeightedTolerance) {
			add("weighted_amount", "Weighted", formatMoney(cur.WeightedAmount, opts.Currency), formatMoney(next.WeightedAmount, opts.Currency))
		}
	}
	return diffs
}

// mergeProposed fills the reviewable fields the sheet left blank with the
// stored values so the operator sees the full resulting deal.
func mergeProposed(next model.CanonicalDeal, cur model.PersistedDeal) model.CanonicalDeal {
	out := next
	if out.Stage == "" {
		out.Stage = cur.Stage
	}
	if out.Stage == "" {
		out.Stage = model.StageDiscovery
	}
	if !out.Amount.Valid {
		out.Amount = cur.Amount
	}
	if out.Owner == "" {
		out.Owner = cur.Owner
	}
	if out.TargetPeriod == "" {
		out.TargetPeriod = cur.TargetPeriod
	}
	if out.DealType == "" {
		out.DealType = cur.DealType
	}
	if !out.RecurringAmount.Valid {
		out.RecurringAmount = cur.RecurringAmount
	}
	if out.CloseDate == nil && cur.CloseDate != nil {
		t := *cur.CloseDate
		out.CloseDate = &t
	}
	if out.Vertical == "" {
		out.Vertical = cur.Vertical
	}
	if out.Region == "" {
		out.Region = cur.Region
	}
	if out.AccountName == "" {
		out.AccountName = cur.AccountName
	}
	return out
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sameAmount(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// formatDate renders a calendar day; nil is empty.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// formatMoney renders whole currency units, e.g. "$50,000".
func formatMoney(d decimal.NullDecimal, currency string) string {
	if !d.Valid {
		return "N/A"
	}
	m := money.NewFromFloat(d.Decimal.Round(0).InexactFloat64(), currency)
	return strings.TrimSuffix(m.Display(), ".00")
}
