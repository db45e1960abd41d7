package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var periodPattern = regexp.MustCompile(`(?i)Q([1-4])\s*['’]\s*(\d{2})`)

// ParsePeriod turns "Q1'26" into the first day of the quarter (2026-01-01).
func ParsePeriod(s string) (time.Time, bool) {
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	q, _ := strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	month := time.Month((q-1)*3 + 1)
	return time.Date(2000+yy, month, 1, 0, 0, 0, 0, time.UTC), true
}

// cleanNumber strips currency symbols, separators and spaces. The boolean
// reports a trailing percent sign.
func cleanNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "").Replace(s)
	if neg && s != "" {
		s = "-" + s
	}
	return s, pct
}

// parseAmount reads a money cell. Empty and "-" cells are absent; anything
// unparseable is reported as an error so the caller can skip the cell.
func parseAmount(s string) (decimal.NullDecimal, error) {
	clean, _ := cleanNumber(s)
	if clean == "" || clean == "-" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("amount %q: %w", s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// parseProbability reads a probability cell. "60%" is returned as 0.6 so a
// typed "1%" stays distinguishable from a fraction of 1.
func parseProbability(s string) (*float64, error) {
	clean, pct := cleanNumber(s)
	if clean == "" || clean == "-" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, fmt.Errorf("probability %q: %w", s, err)
	}
	if pct {
		f = f / 100
	}
	return &f, nil
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "02-Jan-2006", "Jan 2, 2006"}

// parseDate accepts ISO-ish text dates and Excel serial numbers.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, fmt.Errorf("date %q: %w", s, err)
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &day, nil
	}
	return nil, fmt.Errorf("date %q: unrecognised format", s)
}
