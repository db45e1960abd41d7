package extract

import "strings"

// HeaderMatcher is a pure test over one header label.
type HeaderMatcher func(label string) bool

// Exact matches the label byte for byte.
func Exact(want string) HeaderMatcher {
	return func(label string) bool { return label == want }
}

// Trimmed matches ignoring case and surrounding whitespace, which covers
// labels typed with a trailing space.
func Trimmed(want string) HeaderMatcher {
	want = strings.ToLower(strings.TrimSpace(want))
	return func(label string) bool {
		return strings.ToLower(strings.TrimSpace(label)) == want
	}
}

// Contains is the generic fallback: the lowercased label contains sub and
// none of the excluded words.
func Contains(sub string, exclude ...string) HeaderMatcher {
	return func(label string) bool {
		l := strings.ToLower(label)
		if !strings.Contains(l, sub) {
			return false
		}
		for _, x := range exclude {
			if strings.Contains(l, x) {
				return false
			}
		}
		return true
	}
}

// Field is a logical column with its synonyms in priority order.
type Field struct {
	Name     string
	Required bool
	Matchers []HeaderMatcher
}

// Resolve returns the index of the column the first successful matcher hits,
// or -1. Columns already claimed by another field are skipped.
func (f Field) Resolve(headers []string, claimed map[int]bool) int {
	for _, m := range f.Matchers {
		for i, h := range headers {
			if claimed[i] || strings.TrimSpace(h) == "" {
				continue
			}
			if m(h) {
				return i
			}
		}
	}
	return -1
}

// Layout maps field names to column indexes for one sheet.
type Layout map[string]int

// ResolveLayout resolves fields in declaration order so more specific fields
// claim their column before looser fallbacks can.
func ResolveLayout(headers []string, fields []Field) (Layout, []string) {
	layout := make(Layout, len(fields))
	claimed := make(map[int]bool, len(fields))
	var missing []string
	for _, f := range fields {
		idx := f.Resolve(headers, claimed)
		if idx < 0 {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		layout[f.Name] = idx
		claimed[idx] = true
	}
	return layout, missing
}

// Cell returns the trimmed value of field in row, or "" when unmapped.
func (l Layout) Cell(row []string, field string) string {
	idx, ok := l[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Pipeline sheet fields.
const (
	FieldDealName    = "deal_name"
	FieldStage       = "stage"
	FieldTotal       = "total_amount"
	FieldRecurring   = "recurring_amount"
	FieldWeighted    = "weighted_amount"
	FieldProbability = "probability"
	FieldOwner       = "owner"
	FieldPeriod      = "target_period"
	FieldDealType    = "deal_type"
	FieldCloseDate   = "close_date"
	FieldVertical    = "vertical"
	FieldRegion      = "region"
	FieldNote        = "note"
)

// Assignment sheet fields.
const (
	FieldAccountName    = "account_name"
	FieldSalesOwner     = "sales_owner"
	FieldTechnicalOwner = "technical_owner"
)

var PipelineFields = []Field{
	{Name: FieldDealName, Required: true, Matchers: []HeaderMatcher{
		Exact("Deal Name"), Trimmed("Deal Name"), Trimmed("Opportunity Name"), Trimmed("Deal"),
		Contains("deal name"), Contains("opportunity"),
	}},
	{Name: FieldStage, Matchers: []HeaderMatcher{
		Exact("Deal Stage"), Trimmed("Deal Stage"), Trimmed("Stage"), Contains("stage"),
	}},
	{Name: FieldRecurring, Matchers: []HeaderMatcher{
		Exact("Recurring Amount"), Trimmed("Recurring Amount"), Contains("recurring"),
	}},
	{Name: FieldWeighted, Matchers: []HeaderMatcher{
		Exact("Weighted Amount Conservative "),
		Trimmed("Weighted Amount Conservative"),
		Trimmed("Weighted Amount Conseervative"),
		Trimmed("Weighted Conservative"),
		Contains("weighted"),
	}},
	{Name: FieldTotal, Matchers: []HeaderMatcher{
		Exact("Total Amount"), Trimmed("Total Amount"), Trimmed("Amount"), Contains("total"),
	}},
	{Name: FieldProbability, Matchers: []HeaderMatcher{
		Exact("Conservative Probability"), Trimmed("Conservative Probability"), Trimmed("Probability"),
		Contains("probab"),
	}},
	{Name: FieldOwner, Matchers: []HeaderMatcher{
		Exact("Deal Owner"), Trimmed("Deal Owner"), Trimmed("Owner"), Contains("owner"),
	}},
	{Name: FieldPeriod, Matchers: []HeaderMatcher{
		Exact("Quarter to Close"), Trimmed("Quarter to Close"), Trimmed("Target Quarter"), Contains("quarter"),
	}},
	{Name: FieldDealType, Matchers: []HeaderMatcher{
		Exact("Deal Type"), Trimmed("Deal Type"), Trimmed("Type"), Contains("type"),
	}},
	{Name: FieldCloseDate, Matchers: []HeaderMatcher{
		Exact("Close Date"), Trimmed("Close Date"), Trimmed("Expected Close Date"),
	}},
	{Name: FieldVertical, Matchers: []HeaderMatcher{
		Exact("Vertical"), Trimmed("Vertical"), Trimmed("Industry"),
	}},
	{Name: FieldRegion, Matchers: []HeaderMatcher{
		Exact("Region"), Trimmed("Region"),
	}},
	{Name: FieldNote, Matchers: []HeaderMatcher{
		Exact("Note"), Trimmed("Note"), Trimmed("Notes"),
	}},
}

var AssignmentFields = []Field{
	{Name: FieldAccountName, Required: true, Matchers: []HeaderMatcher{
		Exact("Commercial Accounts"), Trimmed("Commercial Accounts"), Trimmed("Commercial Account"),
		Trimmed("Account Name"), Trimmed("Account"), Trimmed("Company"),
		Contains("account", "manager", "owner"), Contains("company"),
	}},
	{Name: FieldSalesOwner, Matchers: []HeaderMatcher{
		Exact("Sales Manager"), Trimmed("Sales Manager"), Trimmed("Sales Owner"), Trimmed("Sales Rep"),
		Contains("sales"),
	}},
	{Name: FieldTechnicalOwner, Matchers: []HeaderMatcher{
		Exact("Account Manager"), Trimmed("Account Manager"), Trimmed("Account Owner"),
		Trimmed("Technical Owner"), Trimmed("Technical AM"), Contains("technical"),
	}},
}
