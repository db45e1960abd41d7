package extract

import (
	"fmt"
	"io"
	"strings"

	"PipelineSync/internal/config"
	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/pipeline/normalize"
)

type Options struct {
	PipelineSheet   string
	AssignmentSheet string
	HeaderScanRows  int
	MinHeaderCells  int
}

func DefaultOptions() Options {
	return Options{
		PipelineSheet:   config.PipelineSheetName,
		AssignmentSheet: config.AssignmentSheetName,
		HeaderScanRows:  config.HeaderScanRows,
		MinHeaderCells:  config.MinHeaderCells,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PipelineSheet == "" {
		o.PipelineSheet = d.PipelineSheet
	}
	if o.AssignmentSheet == "" {
		o.AssignmentSheet = d.AssignmentSheet
	}
	if o.HeaderScanRows <= 0 {
		o.HeaderScanRows = d.HeaderScanRows
	}
	if o.MinHeaderCells <= 0 {
		o.MinHeaderCells = d.MinHeaderCells
	}
	return o
}

type SheetDebug struct {
	HeaderRow    int               `json:"header_row"`
	Headers      []string          `json:"headers"`
	Columns      map[string]string `json:"columns"`
	DataRows     int               `json:"data_rows"`
	SkippedRows  int               `json:"skipped_rows"`
	SkippedCells int               `json:"skipped_cells"`
}

type Debug struct {
	FileName   string                `json:"file_name"`
	Checksum   string                `json:"checksum"`
	SheetNames []string              `json:"sheet_names"`
	Sheets     map[string]SheetDebug `json:"sheets"`
	SampleRow  map[string]string     `json:"sample_row,omitempty"`
}

type Result struct {
	Deals       []model.ExternalDealRow
	Assignments []model.AccountAssignmentRow
	Debug       Debug
}

// Extract reads an upload and returns its typed rows.
func Extract(r io.Reader, fileName string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	wb, err := ReadWorkbook(r, fileName, opts.PipelineSheet)
	if err != nil {
		return nil, err
	}
	return ExtractWorkbook(wb, opts)
}

// ExtractWorkbook pulls deal rows from the pipeline sheet and, when present,
// assignment rows from the assignment sheet.
func ExtractWorkbook(wb *Workbook, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{Debug: Debug{
		FileName:   wb.FileName,
		Checksum:   wb.Checksum,
		SheetNames: wb.SheetNames(),
		Sheets:     map[string]SheetDebug{},
	}}

	pipeline, ok := wb.Sheet(opts.PipelineSheet)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, opts.PipelineSheet)
	}
	deals, dbg, sample, err := extractDeals(pipeline, opts)
	if err != nil {
		return nil, err
	}
	res.Deals = deals
	res.Debug.Sheets[pipeline.Name] = dbg
	res.Debug.SampleRow = sample

	if sheet, ok := wb.Sheet(opts.AssignmentSheet); ok {
		rows, dbg := extractAssignments(sheet, opts)
		res.Assignments = rows
		res.Debug.Sheets[sheet.Name] = dbg
	}
	return res, nil
}

func locateHeader(sheet *Sheet, opts Options, keywords []string) (int, []string) {
	rule := HeaderRule{MinNonEmpty(opts.MinHeaderCells), MentionsAny(keywords...)}
	idx := DetectHeaderRow(sheet.Rows, opts.HeaderScanRows, rule)
	if idx >= len(sheet.Rows) {
		return idx, nil
	}
	return idx, sheet.Rows[idx]
}

func describeLayout(headers []string, layout Layout) map[string]string {
	out := make(map[string]string, len(layout))
	for field, idx := range layout {
		out[field] = headers[idx]
	}
	return out
}

func extractDeals(sheet *Sheet, opts Options) ([]model.ExternalDealRow, SheetDebug, map[string]string, error) {
	headerRow, headers := locateHeader(sheet, opts, PipelineHeaderKeywords)
	layout, missing := ResolveLayout(headers, PipelineFields)
	dbg := SheetDebug{HeaderRow: headerRow, Headers: headers, Columns: describeLayout(headers, layout)}
	if len(missing) > 0 {
		return nil, dbg, nil, fmt.Errorf("%w: %s in sheet %q", ErrMissingColumn, strings.Join(missing, ", "), sheet.Name)
	}

	var (
		deals  []model.ExternalDealRow
		sample map[string]string
	)
	for i := headerRow + 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		name := layout.Cell(row, FieldDealName)
		if name == "" {
			dbg.SkippedRows++
			continue
		}
		if sample == nil {
			sample = make(map[string]string, len(headers))
			for c, h := range headers {
				if c < len(row) && strings.TrimSpace(h) != "" {
					sample[h] = row[c]
				}
			}
		}
		deal, skipped := buildDealRow(layout, row, i+1)
		dbg.SkippedCells += skipped
		deals = append(deals, deal)
	}
	dbg.DataRows = len(deals)
	return deals, dbg, sample, nil
}

// buildDealRow maps one grid row. Malformed cells are dropped and counted.
func buildDealRow(layout Layout, row []string, sourceRow int) (model.ExternalDealRow, int) {
	skipped := 0
	name := layout.Cell(row, FieldDealName)
	deal := model.ExternalDealRow{
		SourceRow:          sourceRow,
		DealName:           name,
		DerivedAccountName: normalize.DeriveAccountName(name),
		StageRaw:           layout.Cell(row, FieldStage),
		Owner:              layout.Cell(row, FieldOwner),
		TargetPeriod:       layout.Cell(row, FieldPeriod),
		DealTypeRaw:        layout.Cell(row, FieldDealType),
		Vertical:           layout.Cell(row, FieldVertical),
		Region:             layout.Cell(row, FieldRegion),
		Note:               layout.Cell(row, FieldNote),
	}

	parsers := []struct {
		field string
		set   func(string) error
	}{
		{FieldTotal, func(s string) (err error) { deal.TotalAmount, err = parseAmount(s); return }},
		{FieldWeighted, func(s string) (err error) { deal.WeightedAmount, err = parseAmount(s); return }},
		{FieldRecurring, func(s string) (err error) { deal.RecurringAmount, err = parseAmount(s); return }},
		{FieldProbability, func(s string) (err error) { deal.ProbabilityRaw, err = parseProbability(s); return }},
		{FieldCloseDate, func(s string) (err error) { deal.CloseHint, err = parseDate(s); return }},
	}
	for _, p := range parsers {
		if err := p.set(layout.Cell(row, p.field)); err != nil {
			skipped++
		}
	}

	if deal.CloseHint == nil && deal.TargetPeriod != "" {
		if t, ok := ParsePeriod(deal.TargetPeriod); ok {
			deal.CloseHint = &t
		}
	}
	return deal, skipped
}

func extractAssignments(sheet *Sheet, opts Options) ([]model.AccountAssignmentRow, SheetDebug) {
	headerRow, headers := locateHeader(sheet, opts, AssignmentHeaderKeywords)
	layout, missing := ResolveLayout(headers, AssignmentFields)
	dbg := SheetDebug{HeaderRow: headerRow, Headers: headers, Columns: describeLayout(headers, layout)}
	if len(missing) > 0 {
		// the sheet is optional; without an account column it contributes nothing
		return nil, dbg
	}

	var rows []model.AccountAssignmentRow
	for i := headerRow + 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		account := layout.Cell(row, FieldAccountName)
		if account == "" {
			dbg.SkippedRows++
			continue
		}
		rows = append(rows, model.AccountAssignmentRow{
			AccountName:    account,
			SalesOwner:     layout.Cell(row, FieldSalesOwner),
			TechnicalOwner: layout.Cell(row, FieldTechnicalOwner),
		})
	}
	dbg.DataRows = len(rows)
	return rows, dbg
}
