// Package query selects records from the working table by customer name,
// initial, or the ALL wildcard.
package query

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fd-manager/fdm/internal/model"
)

// Wildcard selects every record and asks the caller for the grouped report.
const Wildcard = "ALL"

// DefaultHorizon is how close to maturity a deposit must be to be flagged.
const DefaultHorizon = 30 * 24 * time.Hour

// MatchMode chooses how a selector is compared to the customer name.
type MatchMode int

const (
	// MatchSubstring matches customers whose name contains the selector.
	MatchSubstring MatchMode = iota
	// MatchExact matches customers whose name equals the selector. Legacy behavior.
	MatchExact
)

// Result is the outcome of a filter.
type Result struct {
	Selector string // normalized selector
	All      bool   // wildcard: render the bank summary instead of a flat list
	Table    model.Table
}

// Empty reports whether no records matched.
func (r Result) Empty() bool { return r.Table.Empty() }

// NormalizeSelector trims and upper-cases a free-text selector.
func NormalizeSelector(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Filter selects records by initial or customer-name substring. A
// single-character selector only matches initials, so "a" finds customers
// with initial A but not a customer named "Raja".
func Filter(t model.Table, selector string) Result {
	return FilterWith(t, selector, MatchSubstring)
}

// FilterWith selects records using the given customer match mode. A record
// matches when its initial equals the selector or its customer name matches
// it, both case-insensitively. A single-character selector is an initial
// lookup and is not matched against names. A blank selector matches nothing.
func FilterWith(t model.Table, selector string, mode MatchMode) Result {
	sel := NormalizeSelector(selector)
	res := Result{Selector: sel, Table: t.WithRecords(nil)}
	if sel == "" {
		return res
	}
	if sel == Wildcard {
		res.All = true
		res.Table = t
		return res
	}

	var out []model.Record
	for _, r := range t.Records {
		if matches(r, sel, mode) {
			out = append(out, r)
		}
	}
	res.Table = t.WithRecords(out)
	return res
}

func matches(r model.Record, sel string, mode MatchMode) bool {
	if strings.ToUpper(strings.TrimSpace(r.Initial)) == sel {
		return true
	}
	name := strings.ToUpper(strings.TrimSpace(r.Customer))
	if mode == MatchExact {
		return name == sel
	}
	if utf8.RuneCountInString(sel) == 1 {
		return false
	}
	return strings.Contains(name, sel)
}

// Annotated is a record with its presentation-only maturity flag.
type Annotated struct {
	model.Record
	MaturingSoon bool
}

// MaturingSoon reports whether the record matures within horizon of now.
// Deposits that have already matured are flagged too.
func MaturingSoon(r model.Record, now time.Time, horizon time.Duration) bool {
	return r.MaturityDate.Sub(now) < horizon
}

// Annotate flags each record that is maturing soon.
func Annotate(records []model.Record, now time.Time, horizon time.Duration) []Annotated {
	out := make([]Annotated, len(records))
	for i, r := range records {
		out[i] = Annotated{Record: r, MaturingSoon: MaturingSoon(r, now, horizon)}
	}
	return out
}
