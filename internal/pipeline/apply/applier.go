package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"PipelineSync/internal/config"
	"PipelineSync/internal/logger"
	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/pipeline/normalize"
	"PipelineSync/internal/pipeline/resolve"
	"PipelineSync/internal/store"
)

type Request struct {
	Changes     []model.ChangeRecord         `json:"changes"`
	Assignments []model.AccountAssignmentRow `json:"account_assignments,omitempty"`
	Options     model.ApplyOptions           `json:"options"`
}

type Applier struct {
	store       store.Store
	itemTimeout time.Duration
	accountType string
	log         *logrus.Entry
}

type Option func(*Applier)

// WithItemTimeout bounds every store call made for a single change.
func WithItemTimeout(d time.Duration) Option {
	return func(a *Applier) {
		if d > 0 {
			a.itemTimeout = d
		}
	}
}

func New(s store.Store, opts ...Option) *Applier {
	a := &Applier{
		store:       s,
		itemTimeout: config.DefaultItemTimeout,
		accountType: config.NewAccountType,
		log:         logger.Component("applier"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// run is the fold accumulator for one Apply call.
type run struct {
	idx     *resolve.Index
	idxErr  error
	out     model.ApplyOutcome
	touched map[string]bool
}

func (r *run) fail(format string, args ...interface{}) {
	r.out.Errors = append(r.out.Errors, fmt.Sprintf(format, args...))
}

func (r *run) warn(format string, args ...interface{}) {
	r.out.Warnings = append(r.out.Warnings, fmt.Sprintf(format, args...))
}

func (r *run) touchAccount(id string) {
	if id == "" || r.touched[id] {
		return
	}
	r.touched[id] = true
	r.out.AccountsUpdated++
}

// Apply executes each approved change on its own. A failing change is recorded
// in the outcome and the loop moves on; nothing already written is undone.
func (a *Applier) Apply(ctx context.Context, req Request) model.ApplyOutcome {
	r := &run{
		out:     model.ApplyOutcome{Errors: []string{}},
		touched: map[string]bool{},
	}

	accounts, err := a.store.ListAccounts(ctx)
	if err != nil {
		r.idxErr = err
		a.log.WithError(err).Warn("account index unavailable; new deals will fail")
	}
	assignments := withRecordAssignments(req.Assignments, req.Changes)
	r.idx = resolve.NewIndex(accounts, assignments)

	for _, ch := range req.Changes {
		a.applyOne(ctx, r, ch, req.Options)
	}
	a.sweepAssignments(ctx, r, assignments)

	a.log.WithFields(logrus.Fields{
		"created":          r.out.Created,
		"updated":          r.out.Updated,
		"soft_deleted":     r.out.SoftDeleted,
		"accounts_updated": r.out.AccountsUpdated,
		"skipped":          r.out.Skipped,
		"errors":           len(r.out.Errors),
	}).Info("apply finished")
	return r.out
}

func (a *Applier) applyOne(parent context.Context, r *run, ch model.ChangeRecord, opts model.ApplyOptions) {
	ctx, cancel := context.WithTimeout(parent, a.itemTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			a.log.WithField("deal", ch.DealName).Errorf("panic applying change: %v", rec)
			r.fail("Error processing %s: %v", ch.DealName, rec)
		}
	}()

	switch ch.ChangeType {
	case model.ChangeNew:
		if opts.SkipNew {
			r.out.Skipped++
			return
		}
		a.createDeal(ctx, r, ch)
	case model.ChangeModified:
		a.updateDeal(ctx, r, ch)
	case model.ChangeRemoved:
		if opts.SkipRemoved {
			r.out.Skipped++
			return
		}
		a.softDelete(ctx, r, ch)
	default:
		r.out.Skipped++
	}
}

func (a *Applier) createDeal(ctx context.Context, r *run, ch model.ChangeRecord) {
	if ch.Proposed == nil {
		r.fail("Error processing %s: no proposed deal", ch.DealName)
		return
	}
	if r.idxErr != nil {
		r.fail("Failed to create deal %s: account index unavailable: %v", ch.DealName, r.idxErr)
		return
	}
	deal := *ch.Proposed
	if strings.TrimSpace(deal.Name) == "" {
		deal.Name = ch.DealName
	}
	accountName := firstNonEmpty(deal.AccountName, ch.AccountName)
	if accountName == "" {
		accountName = normalize.DeriveAccountName(deal.Name)
	}

	accountID, ok := a.resolveAccount(ctx, r, accountName, deal.Vertical)
	if !ok {
		return
	}

	deal = prepareNewDeal(deal)
	if _, err := a.store.CreateDeal(ctx, accountID, deal); err != nil {
		a.log.WithError(err).WithField("deal", deal.Name).Warn("create deal failed")
		r.fail("Failed to create deal %s: %v", deal.Name, err)
		return
	}
	r.out.Created++
}

// resolveAccount finds the owning account or creates it, merging the
// assignment sheet's owners either way.
func (a *Applier) resolveAccount(ctx context.Context, r *run, name, vertical string) (string, bool) {
	assignment, hasAssignment := r.idx.Assignment(name)

	if acct, ok := r.idx.Lookup(name); ok {
		if hasAssignment {
			patch := resolve.AssignmentPatch(*acct, assignment)
			if !patch.IsEmpty() {
				if err := a.store.UpdateAccount(ctx, acct.ID, patch); err != nil {
					r.warn("Failed to update account assignment for %s: %v", acct.Name, err)
				} else {
					patch.ApplyTo(acct)
					r.touchAccount(acct.ID)
				}
			}
		}
		return acct.ID, true
	}

	var as *model.AccountAssignmentRow
	if hasAssignment {
		as = &assignment
	}
	payload := resolve.NewAccount(name, a.accountType, vertical, as)
	id, err := a.store.CreateAccount(ctx, payload)
	if err != nil {
		a.log.WithError(err).WithField("account", name).Warn("create account failed")
		r.fail("Failed to create account for %s: %v", name, err)
		return "", false
	}
	payload.ID = id
	r.idx.Insert(payload)
	if payload.SalesRep != "" || payload.TechnicalOwner != "" {
		r.touchAccount(id)
	}
	return id, true
}

func (a *Applier) updateDeal(ctx context.Context, r *run, ch model.ChangeRecord) {
	id := changeTargetID(ch)
	if id == "" || ch.Proposed == nil {
		r.fail("Failed to update %s: change carries no deal id or proposed values", ch.DealName)
		return
	}
	patch := PatchFromProposed(*ch.Proposed)
	if patch.IsEmpty() {
		r.out.Skipped++
		return
	}
	if err := a.store.UpdateDeal(ctx, id, patch); err != nil {
		r.fail("Failed to update %s: %v", ch.DealName, err)
		return
	}
	r.out.Updated++
}

func (a *Applier) softDelete(ctx context.Context, r *run, ch model.ChangeRecord) {
	id := changeTargetID(ch)
	if id == "" {
		r.fail("Failed to remove %s: change carries no deal id", ch.DealName)
		return
	}
	lost := model.StageClosedLost
	if err := a.store.UpdateDeal(ctx, id, model.DealPatch{Stage: &lost}); err != nil {
		r.fail("Failed to remove %s: %v", ch.DealName, err)
		return
	}
	r.out.SoftDeleted++
}

// sweepAssignments brings existing accounts in line with the assignment sheet.
// Failures here are warnings; they never fail the run.
func (a *Applier) sweepAssignments(parent context.Context, r *run, assignments []model.AccountAssignmentRow) {
	if len(assignments) == 0 {
		return
	}
	if r.idxErr != nil {
		r.warn("Skipped account assignment sweep: %v", r.idxErr)
		return
	}
	for _, as := range assignments {
		acct, ok := r.idx.Lookup(as.AccountName)
		if !ok {
			continue
		}
		patch := resolve.AssignmentPatch(*acct, as)
		if patch.IsEmpty() {
			continue
		}
		ctx, cancel := context.WithTimeout(parent, a.itemTimeout)
		err := a.store.UpdateAccount(ctx, acct.ID, patch)
		cancel()
		if err != nil {
			a.log.WithError(err).WithField("account", acct.Name).Warn("assignment sweep update failed")
			r.warn("Failed to update account assignment for %s: %v", acct.Name, err)
			continue
		}
		patch.ApplyTo(acct)
		r.touchAccount(acct.ID)
	}
}

// withRecordAssignments appends the assignment attached to each change for
// accounts the request's own assignment list does not cover.
func withRecordAssignments(assignments []model.AccountAssignmentRow, changes []model.ChangeRecord) []model.AccountAssignmentRow {
	covered := make(map[string]bool, len(assignments))
	for _, as := range assignments {
		covered[model.AccountKey(as.AccountName)] = true
	}
	out := assignments
	for _, ch := range changes {
		if ch.Assignment == nil {
			continue
		}
		key := model.AccountKey(ch.Assignment.AccountName)
		if key == "" || covered[key] {
			continue
		}
		covered[key] = true
		out = append(out, *ch.Assignment)
	}
	return out
}

func changeTargetID(ch model.ChangeRecord) string {
	if ch.Current != nil && ch.Current.ID != "" {
		return ch.Current.ID
	}
	if strings.HasPrefix(ch.ID, "new_") {
		return ""
	}
	return ch.ID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
