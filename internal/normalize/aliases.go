package normalize

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/fd-manager/fdm/internal/model"
)

// Mode controls what happens to input columns that match no alias.
type Mode string

const (
	// ModeStrict drops unknown columns.
	ModeStrict Mode = "strict"
	// ModePreserve keeps unknown columns as Record.Extra.
	ModePreserve Mode = "preserve"
)

// DefaultAliases returns the header spellings seen in FD workbooks over time,
// each mapped to its canonical column. Canonical names map to themselves so
// exported files load back unchanged.
func DefaultAliases() map[string]string {
	aliases := map[string]string{
		"Customer Name":   model.ColCustomer,
		"Name":            model.ColCustomer,
		"fisrt Name":      model.ColInitial, // misspelled in the original workbook
		"First Name":      model.ColInitial,
		"Bank Name":       model.ColBank,
		"Deposit Amt":     model.ColDepositAmount,
		"Deposit Amount":  model.ColDepositAmount,
		"DA":              model.ColDepositAmount,
		"Maturity Amt":    model.ColMaturityAmount,
		"Maturity Amount": model.ColMaturityAmount,
		"MA":              model.ColMaturityAmount,
		"Deposit Date":    model.ColDepositDate,
		"DA_Date":         model.ColDepositDate,
		"Interest Amount": model.ColInterest,
		"FDR NO":          model.ColFDRNumber,
		"FDR No":          model.ColFDRNumber,
		"FDR Number":      model.ColFDRNumber,
		"FDR_NO":          model.ColFDRNumber,
		"Maturity Date":   model.ColMaturityDate,
		"MA_Date":         model.ColMaturityDate,
	}
	for _, c := range model.Columns {
		aliases[c] = c
	}
	return aliases
}

// MergeAliases returns base overlaid with extra. Neither input is modified.
func MergeAliases(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func validateAliases(aliases map[string]string) error {
	for header, col := range aliases {
		if !isCanonical(col) {
			return fmt.Errorf("alias %q targets unknown column %q", header, col)
		}
	}
	return nil
}

func isCanonical(col string) bool {
	for _, c := range model.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// foldHeader is the loose-matching key for a header: NFKC-normalized,
// whitespace collapsed, case-folded.
func foldHeader(h string) string {
	h = norm.NFKC.String(h)
	h = strings.Join(strings.Fields(h), " ")
	return cases.Fold().String(h)
}

// headerMatcher resolves input headers to canonical columns.
type headerMatcher struct {
	exact map[string]string
	loose map[string]string // nil unless loose matching is on
}

func newHeaderMatcher(aliases map[string]string, loose bool) headerMatcher {
	m := headerMatcher{exact: aliases}
	if loose {
		m.loose = make(map[string]string, len(aliases))
		for h, col := range aliases {
			m.loose[foldHeader(h)] = col
		}
	}
	return m
}

func (m headerMatcher) match(header string) (string, bool) {
	if col, ok := m.exact[header]; ok {
		return col, true
	}
	if m.loose != nil {
		col, ok := m.loose[foldHeader(header)]
		return col, ok
	}
	return "", false
}
