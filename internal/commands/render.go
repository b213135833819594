package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/normalize"
	"github.com/fd-manager/fdm/internal/query"
	"github.com/fd-manager/fdm/internal/report"
)

const soonLabel = "MATURING SOON"

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeRow(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func printRecords(w io.Writer, t model.Table, now time.Time, horizon time.Duration) error {
	tw := newTabWriter(w)
	writeRow(tw, append(t.Headers(), "Status")...)
	for _, a := range query.Annotate(t.Records, now, horizon) {
		cells := make([]string, 0, len(t.Headers())+1)
		for _, col := range t.Headers() {
			v, _ := a.Field(col)
			cells = append(cells, v)
		}
		status := ""
		if a.MaturingSoon {
			status = soonLabel
		}
		writeRow(tw, append(cells, status)...)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s report.Summary) error {
	tw := newTabWriter(w)
	writeRow(tw, model.ColBank, model.ColCustomer, model.ColDepositAmount, model.ColMaturityAmount, model.ColInterest)
	for _, r := range s.Rows {
		writeRow(tw, r.Bank, r.Customer, money(r.DepositAmount), money(r.MaturityAmount), money(r.Interest))
	}
	g := s.GrandTotal
	writeRow(tw, report.GrandTotalLabel, "", money(g.DepositAmount), money(g.MaturityAmount), money(g.Interest))
	return tw.Flush()
}

func printPivot(w io.Writer, pt report.PivotTable) error {
	tw := newTabWriter(w)
	writeRow(tw, pt.Header()...)
	for _, r := range append(pt.Rows, pt.GrandTotal) {
		cells := append([]string(nil), r.Keys...)
		for _, c := range r.Cells {
			cells = append(cells, money(c))
		}
		writeRow(tw, cells...)
	}
	return tw.Flush()
}

func printShares(w io.Writer, dim, value string, slices []report.Slice) error {
	tw := newTabWriter(w)
	writeRow(tw, dim, value, "Percent")
	for _, s := range slices {
		writeRow(tw, s.Label, money(s.Value), s.Percent.StringFixed(2)+"%")
	}
	return tw.Flush()
}

func printDiagnostics(w io.Writer, d normalize.Diagnostics) {
	fmt.Fprintln(w, d.Summary())
	if len(d.MissingColumns) > 0 {
		fmt.Fprintf(w, "missing columns: %s\n", strings.Join(d.MissingColumns, ", "))
	}
	for _, u := range d.Unknown {
		fmt.Fprintf(w, "unknown column %s\n", u)
	}
	for _, h := range d.Duplicates {
		fmt.Fprintf(w, "duplicate column %q ignored\n", h)
	}
	for _, r := range d.Dropped {
		fmt.Fprintf(w, "dropped %s\n", r)
	}
}
