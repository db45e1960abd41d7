package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"PipelineSync/internal/checksum"
)

type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is the format-independent grid view of an upload.
type Workbook struct {
	FileName string
	Checksum string
	Sheets   []Sheet
}

// SheetNames lists sheets in workbook order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// Sheet finds a sheet by name, ignoring case and surrounding whitespace.
func (wb *Workbook) Sheet(name string) (*Sheet, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range wb.Sheets {
		if strings.ToLower(strings.TrimSpace(wb.Sheets[i].Name)) == want {
			return &wb.Sheets[i], true
		}
	}
	return nil, false
}

// ReadWorkbook loads an upload by extension: .xlsx/.xlsm through excelize,
// .xls through extrame/xls, .csv as a single pipeline sheet.
func ReadWorkbook(r io.Reader, fileName, csvSheetName string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	wb := &Workbook{FileName: fileName, Checksum: checksum.Sum(data)}

	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".xlsx", ".xlsm":
		wb.Sheets, err = readXLSX(data)
	case ".xls":
		wb.Sheets, err = readXLS(data)
	case ".csv":
		wb.Sheets, err = readCSV(data, csvSheetName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	return wb, nil
}

func readXLSX(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		// raw values keep percentage cells as fractions and dates as serials
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

func readXLS(data []byte) ([]Sheet, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	var sheets []Sheet
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, Sheet{Name: ws.Name, Rows: rows})
	}
	return sheets, nil
}

func readCSV(data []byte, sheetName string) ([]Sheet, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return []Sheet{{Name: sheetName, Rows: rows}}, nil
}
