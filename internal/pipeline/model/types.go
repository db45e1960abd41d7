package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ------------------------- Stages & types -------------------------

type Stage string

const (
	StageDiscovery     Stage = "Discovery"
	StageQualification Stage = "Qualification"
	StageProposal      Stage = "Proposal"
	StageNegotiation   Stage = "Negotiation"
	StageClosedWon     Stage = "Closed_Won"
	StageClosedLost    Stage = "Closed_Lost"
)

// IsClosed reports whether the stage is terminal.
func (s Stage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

type DealType string

const (
	DealTypeNewBusiness DealType = "new_business"
	DealTypeRenewal     DealType = "renewal"
	DealTypeUpsell      DealType = "upsell"
	DealTypeRecurring   DealType = "recurring"
)

type ChangeType string

const (
	ChangeNew       ChangeType = "new"
	ChangeModified  ChangeType = "modified"
	ChangeUnchanged ChangeType = "unchanged"
	ChangeRemoved   ChangeType = "removed"
)

// ------------------------- Extracted rows -------------------------

// ExternalDealRow is one pipeline-sheet row after column resolution. Every
// optional cell keeps its own typed optional so the normalizer can tell an
// empty cell from a zero.
type ExternalDealRow struct {
	SourceRow          int                 `json:"source_row"`
	DealName           string              `json:"deal_name"`
	DerivedAccountName string              `json:"derived_account_name"`
	StageRaw           string              `json:"stage_raw,omitempty"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	WeightedAmount     decimal.NullDecimal `json:"weighted_amount"`
	RecurringAmount    decimal.NullDecimal `json:"recurring_amount"`
	Owner              string              `json:"owner,omitempty"`
	TargetPeriod       string              `json:"target_period,omitempty"`
	DealTypeRaw        string              `json:"deal_type_raw,omitempty"`
	ProbabilityRaw     *float64            `json:"probability_raw,omitempty"`
	CloseHint          *time.Time          `json:"close_hint,omitempty"`
	Vertical           string              `json:"vertical,omitempty"`
	Region             string              `json:"region,omitempty"`
	Note               string              `json:"note,omitempty"`
}

type AccountAssignmentRow struct {
	AccountName    string `json:"account_name"`
	SalesOwner     string `json:"sales_owner,omitempty"`
	TechnicalOwner string `json:"technical_owner,omitempty"`
}

// ------------------------- Canonical & persisted deals -------------------------

// CanonicalDeal is the store-aligned shape of a deal. ProbabilityPct is always
// an integer percentage in 0..100 when present.
type CanonicalDeal struct {
	Name            string              `json:"name"`
	AccountName     string              `json:"account_name"`
	Stage           Stage               `json:"stage"`
	Amount          decimal.NullDecimal `json:"amount"`
	WeightedAmount  decimal.NullDecimal `json:"weighted_amount"`
	RecurringAmount decimal.NullDecimal `json:"recurring_amount"`
	ProbabilityPct  *int                `json:"probability_pct,omitempty"`
	Owner           string              `json:"owner,omitempty"`
	TargetPeriod    string              `json:"target_period,omitempty"`
	DealType        DealType            `json:"deal_type,omitempty"`
	CloseDate       *time.Time          `json:"close_date,omitempty"`
	ConfirmedValue  decimal.NullDecimal `json:"confirmed_value"`
	Vertical        string              `json:"vertical,omitempty"`
	Region          string              `json:"region,omitempty"`
}

type PersistedDeal struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	CanonicalDeal
}

type Account struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AccountType    string `json:"account_type,omitempty"`
	Vertical       string `json:"vertical,omitempty"`
	SalesRep       string `json:"sales_rep,omitempty"`
	TechnicalOwner string `json:"technical_owner,omitempty"`
}

// ------------------------- Patches -------------------------

// DealPatch is a partial deal update: nil fields are left untouched.
type DealPatch struct {
	Stage           *Stage
	Amount          *decimal.Decimal
	WeightedAmount  *decimal.Decimal
	RecurringAmount *decimal.Decimal
	ProbabilityPct  *int
	Owner           *string
	TargetPeriod    *string
	DealType        *DealType
	CloseDate       *time.Time
	ConfirmedValue  *decimal.Decimal
	Vertical        *string
	Region          *string
}

// IsEmpty reports whether the patch would write nothing.
func (p DealPatch) IsEmpty() bool {
	return p.Stage == nil && p.Amount == nil && p.WeightedAmount == nil &&
		p.RecurringAmount == nil && p.ProbabilityPct == nil && p.Owner == nil &&
		p.TargetPeriod == nil && p.DealType == nil && p.CloseDate == nil &&
		p.ConfirmedValue == nil && p.Vertical == nil && p.Region == nil
}

// ApplyTo writes the present fields of p onto d.
func (p DealPatch) ApplyTo(d *CanonicalDeal) {
	if p.Stage != nil {
		d.Stage = *p.Stage
	}
	if p.Amount != nil {
		d.Amount = decimal.NewNullDecimal(*p.Amount)
	}
	if p.WeightedAmount != nil {
		d.WeightedAmount = decimal.NewNullDecimal(*p.WeightedAmount)
	}
	if p.RecurringAmount != nil {
		d.RecurringAmount = decimal.NewNullDecimal(*p.RecurringAmount)
	}
	if p.ProbabilityPct != nil {
		v := *p.ProbabilityPct
		d.ProbabilityPct = &v
	}
	if p.Owner != nil {
		d.Owner = *p.Owner
	}
	if p.TargetPeriod != nil {
		d.TargetPeriod = *p.TargetPeriod
	}
	if p.DealType != nil {
		d.DealType = *p.DealType
	}
	if p.CloseDate != nil {
		t := *p.CloseDate
		d.CloseDate = &t
	}
	if p.ConfirmedValue != nil {
		d.ConfirmedValue = decimal.NewNullDecimal(*p.ConfirmedValue)
	}
	if p.Vertical != nil {
		d.Vertical = *p.Vertical
	}
	if p.Region != nil {
		d.Region = *p.Region
	}
}

type AccountPatch struct {
	SalesRep       *string
	TechnicalOwner *string
}

func (p AccountPatch) IsEmpty() bool {
	return p.SalesRep == nil && p.TechnicalOwner == nil
}

func (p AccountPatch) ApplyTo(a *Account) {
	if p.SalesRep != nil {
		a.SalesRep = *p.SalesRep
	}
	if p.TechnicalOwner != nil {
		a.TechnicalOwner = *p.TechnicalOwner
	}
}

// ------------------------- Diff & apply -------------------------

type FieldDiff struct {
	Field    string `json:"field"`
	Current  string `json:"current"`
	Proposed string `json:"proposed"`
	Message  string `json:"message"`
}

type ChangeRecord struct {
	ID          string                `json:"id"`
	NaturalKey  string                `json:"natural_key"`
	DealName    string                `json:"deal_name"`
	AccountName string                `json:"account_name"`
	ChangeType  ChangeType            `json:"change_type"`
	Current     *PersistedDeal        `json:"current,omitempty"`
	Proposed    *CanonicalDeal        `json:"proposed,omitempty"`
	FieldDiffs  []FieldDiff           `json:"field_diffs,omitempty"`
	Assignment  *AccountAssignmentRow `json:"assignment,omitempty"`
}

type ApplyOptions struct {
	SkipNew     bool `json:"skip_new"`
	SkipRemoved bool `json:"skip_removed"`
}

// ApplyOutcome accumulates the result of one apply run. Errors are ordered as
// they occurred.
type ApplyOutcome struct {
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	SoftDeleted     int      `json:"soft_deleted"`
	AccountsUpdated int      `json:"accounts_updated"`
	Skipped         int      `json:"skipped"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Succeeded is false only when something was attempted and nothing worked.
func (o ApplyOutcome) Succeeded() bool {
	anySuccess := o.Created > 0 || o.Updated > 0 || o.SoftDeleted > 0 || o.AccountsUpdated > 0
	return anySuccess || len(o.Errors) == 0
}

// ------------------------- Keys -------------------------

// NaturalKey is the correlation key between sheet rows and persisted deals.
func NaturalKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AccountKey is the case-insensitive exact-match key for account names.
func AccountKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
