// Package pipeline wires the reconciliation stages into the three operations
// the service exposes: parse, preview and apply.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PipelineSync/internal/audit"
	"PipelineSync/internal/logger"
	"PipelineSync/internal/pipeline/apply"
	"PipelineSync/internal/pipeline/diff"
	"PipelineSync/internal/pipeline/extract"
	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/pipeline/normalize"
	"PipelineSync/internal/store"
)

type Engine struct {
	store    store.Store
	audit    *audit.Recorder
	extract  extract.Options
	diff     diff.Options
	applyOps []apply.Option
	now      func() time.Time
	log      *logrus.Entry
}

type Option func(*Engine)

func WithAudit(r *audit.Recorder) Option {
	return func(e *Engine) { e.audit = r }
}

func WithExtractOptions(o extract.Options) Option {
	return func(e *Engine) { e.extract = o }
}

func WithDiffOptions(o diff.Options) Option {
	return func(e *Engine) { e.diff = o }
}

func WithItemTimeout(d time.Duration) Option {
	return func(e *Engine) { e.applyOps = append(e.applyOps, apply.WithItemTimeout(d)) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		extract: extract.DefaultOptions(),
		diff:    diff.DefaultOptions(),
		now:     time.Now,
		log:     logger.Component("pipeline"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ------------------------- Parse -------------------------

type DealTypeTotals struct {
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
	Weighted decimal.Decimal `json:"weighted"`
}

type ParseSummary struct {
	TotalDeals          int                               `json:"total_deals"`
	ClosedWon           int                               `json:"closed_won"`
	ClosedLost          int                               `json:"closed_lost"`
	Active              int                               `json:"active"`
	AccountAssignments  int                               `json:"account_assignments"`
	TotalPipeline       decimal.Decimal                   `json:"total_pipeline"`
	TotalWeighted       decimal.Decimal                   `json:"total_weighted"`
	RenewalWeighted     decimal.Decimal                   `json:"renewal_weighted"`
	UpsellWeighted      decimal.Decimal                   `json:"upsell_weighted"`
	NewBusinessWeighted decimal.Decimal                   `json:"new_business_weighted"`
	ByDealType          map[model.DealType]DealTypeTotals `json:"by_deal_type"`
}

type ParseResult struct {
	Deals       []model.CanonicalDeal        `json:"deals"`
	Assignments []model.AccountAssignmentRow `json:"account_assignments"`
	Summary     ParseSummary                 `json:"summary"`
	Debug       extract.Debug                `json:"debug"`
}

// Parse extracts and normalizes an upload. Structural problems come back as
// the extract package's sentinel errors.
func (e *Engine) Parse(r io.Reader, fileName string) (*ParseResult, error) {
	res, err := extract.Extract(r, fileName, e.extract)
	if err != nil {
		return nil, err
	}
	deals := normalize.Deals(res.Deals)
	assignments := res.Assignments
	if assignments == nil {
		assignments = []model.AccountAssignmentRow{}
	}
	out := &ParseResult{
		Deals:       deals,
		Assignments: assignments,
		Summary:     Summarize(deals, len(assignments)),
		Debug:       res.Debug,
	}
	e.log.WithFields(logrus.Fields{
		"file":        fileName,
		"deals":       len(deals),
		"assignments": len(assignments),
	}).Info("parsed upload")
	return out, nil
}

// Summarize totals parsed deals. Pipeline totals cover open deals only; the
// per-type weighted totals cover every deal.
func Summarize(deals []model.CanonicalDeal, assignments int) ParseSummary {
	s := ParseSummary{
		TotalDeals:         len(deals),
		AccountAssignments: assignments,
		ByDealType:         map[model.DealType]DealTypeTotals{},
	}
	for _, d := range deals {
		amount := d.Amount.Decimal
		weighted := d.WeightedAmount.Decimal

		switch d.Stage {
		case model.StageClosedWon:
			s.ClosedWon++
		case model.StageClosedLost:
			s.ClosedLost++
		default:
			s.Active++
			s.TotalPipeline = s.TotalPipeline.Add(amount)
			s.TotalWeighted = s.TotalWeighted.Add(weighted)
		}

		dt := d.DealType
		if dt == "" {
			dt = model.DealTypeNewBusiness
		}
		switch dt {
		case model.DealTypeRenewal, model.DealTypeRecurring:
			s.RenewalWeighted = s.RenewalWeighted.Add(weighted)
		case model.DealTypeUpsell:
			s.UpsellWeighted = s.UpsellWeighted.Add(weighted)
		default:
			s.NewBusinessWeighted = s.NewBusinessWeighted.Add(weighted)
		}

		t := s.ByDealType[dt]
		t.Count++
		t.Amount = t.Amount.Add(amount)
		t.Weighted = t.Weighted.Add(weighted)
		s.ByDealType[dt] = t
	}
	return s
}

// ------------------------- Preview -------------------------

type PreviewRequest struct {
	Deals       []model.CanonicalDeal        `json:"deals"`
	Assignments []model.AccountAssignmentRow `json:"account_assignments,omitempty"`
}

type PreviewResult struct {
	Summary       diff.Summary         `json:"summary"`
	Changes       []model.ChangeRecord `json:"changes"`
	DuplicateKeys []string             `json:"duplicate_keys"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Preview diffs the parsed deals against a fresh read of the store.
func (e *Engine) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	persisted, err := e.store.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	res := diff.Compute(req.Deals, persisted, req.Assignments, e.diff)
	dupes := res.DuplicateKeys
	if dupes == nil {
		dupes = []string{}
	}
	out := &PreviewResult{
		Summary:       diff.Summarize(res.Changes),
		Changes:       res.Changes,
		DuplicateKeys: dupes,
		Timestamp:     e.now().UTC(),
	}
	e.log.WithFields(logrus.Fields{
		"new":        out.Summary.New,
		"modified":   out.Summary.Modified,
		"unchanged":  out.Summary.Unchanged,
		"removed":    out.Summary.Removed,
		"duplicates": len(dupes),
	}).Info("preview computed")
	return out, nil
}

// Snapshot lists every persisted deal as unchanged.
func (e *Engine) Snapshot(ctx context.Context) (*PreviewResult, error) {
	persisted, err := e.store.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	changes := diff.Snapshot(persisted)
	return &PreviewResult{
		Summary:       diff.Summarize(changes),
		Changes:       changes,
		DuplicateKeys: []string{},
		Timestamp:     e.now().UTC(),
	}, nil
}

// ------------------------- Apply -------------------------

type ApplyResult struct {
	Success bool               `json:"success"`
	RunID   string             `json:"run_id"`
	Results model.ApplyOutcome `json:"results"`
	Errors  []string           `json:"errors"`
	Message string             `json:"message"`
}

// Apply executes the approved changes and records the run. source names the
// upload or caller for the audit trail.
func (e *Engine) Apply(ctx context.Context, req apply.Request, source string) ApplyResult {
	runID := uuid.NewString()
	started := e.now()
	log := e.log.WithField("run_id", runID)
	log.WithField("changes", len(req.Changes)).Info("apply started")

	outcome := apply.New(e.store, e.applyOps...).Apply(ctx, req)

	run := audit.Run{
		RunID:      runID,
		Source:     source,
		StartedAt:  started,
		FinishedAt: e.now(),
		Requested:  len(req.Changes),
		Outcome:    outcome,
	}
	if err := e.audit.Record(ctx, run); err != nil {
		log.WithError(err).Warn("audit write failed")
		outcome.Warnings = append(outcome.Warnings, "Failed to record apply run: "+err.Error())
	}

	return ApplyResult{
		Success: outcome.Succeeded(),
		RunID:   runID,
		Results: outcome,
		Errors:  outcome.Errors,
		Message: Message(outcome),
	}
}

// History returns a page of recorded runs, newest first.
func (e *Engine) History(ctx context.Context, limit, offset int) ([]audit.Run, error) {
	return e.audit.Recent(ctx, limit, offset)
}

// Message is the one-line human summary of an apply outcome.
func Message(o model.ApplyOutcome) string {
	msg := fmt.Sprintf("Created %d, updated %d, removed %d deals. Updated %d account assignments.",
		o.Created, o.Updated, o.SoftDeleted, o.AccountsUpdated)
	if len(o.Errors) > 0 {
		msg += fmt.Sprintf(" (%d errors)", len(o.Errors))
	}
	return msg
}
