package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Excel serials outside this range are not dates (9999-12-31 is 2958465).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

var currencyMarkers = []string{"₹", "INR", "Rs.", "Rs", "$"}

// ParseAmount leniently parses a money cell. Thousands separators, currency
// markers, a trailing "/-" and accounting parentheses are accepted. The
// boolean is false for blank or unparsable input.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	for _, m := range currencyMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "/-")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

var (
	isoLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/1/2",
	}
	dayFirstLayouts = []string{
		"2/1/2006",
		"2-1-2006",
		"2.1.2006",
		"2/1/2006 15:04:05",
		"2-1-2006 15:04:05",
		"2/1/06",
		"2-1-06",
	}
	monthFirstLayouts = []string{
		"1/2/2006",
		"1-2-2006",
		"1.2.2006",
		"1/2/2006 15:04:05",
		"1-2-2006 15:04:05",
		"1/2/06",
		"1-2-06",
	}
	textLayouts = []string{
		"2-Jan-2006",
		"2-Jan-06",
		"2 Jan 2006",
		"2 January 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"02-Jan-2006 15:04:05",
	}
)

// ParseDate leniently parses a date cell: Excel serial numbers, ISO dates,
// numeric dates in the preferred order (falling back to the other order),
// and textual month names. The result is midnight UTC. The boolean is false
// for blank or unparsable input.
func ParseDate(s string, dayFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < minExcelSerial || f > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return dateOnly(t), true
	}

	first, second := dayFirstLayouts, monthFirstLayouts
	if !dayFirst {
		first, second = second, first
	}
	for _, group := range [][]string{isoLayouts, first, second, textLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return dateOnly(t), true
			}
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
