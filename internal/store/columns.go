package store

import (
	"time"

	"github.com/shopspring/decimal"

	"PipelineSync/internal/pipeline/model"
)

// DateLayout is how close dates travel to and from SQL backends.
const DateLayout = "2006-01-02"

// Column is one SET target of a partial update. Cast is the SQL type a
// backend may need to coerce the text value into.
type Column struct {
	Name  string
	Value interface{}
	Cast  string
}

// DealColumns lists the columns a patch writes, in a stable order.
func DealColumns(p model.DealPatch) []Column {
	var cols []Column
	if p.Stage != nil {
		cols = append(cols, Column{Name: "stage", Value: string(*p.Stage)})
	}
	if p.Amount != nil {
		cols = append(cols, Column{Name: "amount", Value: p.Amount.String(), Cast: "numeric"})
	}
	if p.WeightedAmount != nil {
		cols = append(cols, Column{Name: "weighted_amount", Value: p.WeightedAmount.String(), Cast: "numeric"})
	}
	if p.RecurringAmount != nil {
		cols = append(cols, Column{Name: "recurring_amount", Value: p.RecurringAmount.String(), Cast: "numeric"})
	}
	if p.ProbabilityPct != nil {
		cols = append(cols, Column{Name: "probability_pct", Value: int64(*p.ProbabilityPct)})
	}
	if p.Owner != nil {
		cols = append(cols, Column{Name: "owner", Value: *p.Owner})
	}
	if p.TargetPeriod != nil {
		cols = append(cols, Column{Name: "target_period", Value: *p.TargetPeriod})
	}
	if p.DealType != nil {
		cols = append(cols, Column{Name: "deal_type", Value: string(*p.DealType)})
	}
	if p.CloseDate != nil {
		cols = append(cols, Column{Name: "close_date", Value: p.CloseDate.Format(DateLayout), Cast: "date"})
	}
	if p.ConfirmedValue != nil {
		cols = append(cols, Column{Name: "confirmed_value", Value: p.ConfirmedValue.String(), Cast: "numeric"})
	}
	if p.Vertical != nil {
		cols = append(cols, Column{Name: "vertical", Value: *p.Vertical})
	}
	if p.Region != nil {
		cols = append(cols, Column{Name: "region", Value: *p.Region})
	}
	return cols
}

// AccountColumns lists the columns an account patch writes.
func AccountColumns(p model.AccountPatch) []Column {
	var cols []Column
	if p.SalesRep != nil {
		cols = append(cols, Column{Name: "sales_rep", Value: *p.SalesRep})
	}
	if p.TechnicalOwner != nil {
		cols = append(cols, Column{Name: "technical_owner", Value: *p.TechnicalOwner})
	}
	return cols
}

// DecimalArg is the text bind value of an optional amount.
func DecimalArg(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// ProbabilityArg is the bind value of an optional percentage.
func ProbabilityArg(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// DateArg is the text bind value of an optional date.
func DateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(DateLayout)
}

// ParseDecimal reads an amount scanned as text.
func ParseDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil || *s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseDate reads a date scanned as text. Longer timestamps are truncated to
// the date part.
func ParseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v := *s
	if len(v) > len(DateLayout) {
		v = v[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NullString maps an empty string to SQL NULL.
func NullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// DealSelect is the column list both SQL backends read deals with. Amounts
// and dates come back as text.
const DealSelect = `CAST(d.id AS TEXT), CAST(d.account_id AS TEXT), COALESCE(a.name, ''), d.name, d.stage,
  CAST(d.amount AS TEXT), CAST(d.weighted_amount AS TEXT), CAST(d.recurring_amount AS TEXT),
  d.probability_pct, d.owner, d.target_period, d.deal_type, CAST(d.close_date AS TEXT),
  CAST(d.confirmed_value AS TEXT), d.vertical, d.region`

// DealScan holds one scanned deal row.
type DealScan struct {
	ID, AccountID, AccountName, Name, Stage string
	Amount, Weighted, Recurring, Confirmed  *string
	Probability                             *int64
	Owner, Period, DealType, CloseDate      *string
	Vertical, Region                        *string
}

// Dest returns scan targets in DealSelect order.
func (s *DealScan) Dest() []interface{} {
	return []interface{}{
		&s.ID, &s.AccountID, &s.AccountName, &s.Name, &s.Stage,
		&s.Amount, &s.Weighted, &s.Recurring,
		&s.Probability, &s.Owner, &s.Period, &s.DealType, &s.CloseDate,
		&s.Confirmed, &s.Vertical, &s.Region,
	}
}

func (s *DealScan) Deal() (model.PersistedDeal, error) {
	d := model.PersistedDeal{ID: s.ID, AccountID: s.AccountID, AccountName: s.AccountName}
	d.Name = s.Name
	d.CanonicalDeal.AccountName = s.AccountName
	d.Stage = model.Stage(s.Stage)
	var err error
	if d.Amount, err = ParseDecimal(s.Amount); err != nil {
		return d, err
	}
	if d.WeightedAmount, err = ParseDecimal(s.Weighted); err != nil {
		return d, err
	}
	if d.RecurringAmount, err = ParseDecimal(s.Recurring); err != nil {
		return d, err
	}
	if d.ConfirmedValue, err = ParseDecimal(s.Confirmed); err != nil {
		return d, err
	}
	if d.CloseDate, err = ParseDate(s.CloseDate); err != nil {
		return d, err
	}
	if s.Probability != nil {
		p := int(*s.Probability)
		d.ProbabilityPct = &p
	}
	d.Owner = deref(s.Owner)
	d.TargetPeriod = deref(s.Period)
	d.DealType = model.DealType(deref(s.DealType))
	d.Vertical = deref(s.Vertical)
	d.Region = deref(s.Region)
	return d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
