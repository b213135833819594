package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fd-manager/fdm/internal/ledger"
	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/normalize"
)

// depositFlags are the deposit fields shared by add and renew, as typed on
// the command line.
type depositFlags struct {
	depositAmount  string
	maturityAmount string
	depositDate    string
	interest       string
	maturityDate   string
	term           int
	out            string
	format         string
}

func (f *depositFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.depositAmount, "deposit", "", "deposit amount")
	fs.StringVar(&f.maturityAmount, "maturity-amount", "", "amount paid at maturity")
	fs.StringVar(&f.depositDate, "deposit-date", "", "deposit date, e.g. 20/06/2020")
	fs.StringVar(&f.interest, "interest", "", "interest earned")
	fs.StringVar(&f.maturityDate, "maturity-date", "", "maturity date (derived from --term when blank)")
	fs.IntVar(&f.term, "term", 0, "term in months (config maturity.term_months when 0)")
	fs.StringVar(&f.out, "out", "", "output file (config export.file_name when blank)")
	fs.StringVar(&f.format, "format", "", "output format (taken from --out's extension when blank)")
}

// parsed holds the typed values of depositFlags.
type parsed struct {
	depositAmount  decimal.Decimal
	maturityAmount decimal.Decimal
	depositDate    time.Time
	interest       decimal.Decimal
	maturityDate   time.Time
	term           int
}

func (f *depositFlags) parse(e *env) (parsed, error) {
	var p parsed
	var err error
	if p.depositAmount, err = parseAmountFlag("deposit", f.depositAmount); err != nil {
		return p, err
	}
	if p.maturityAmount, err = parseAmountFlag("maturity-amount", f.maturityAmount); err != nil {
		return p, err
	}
	if p.interest, err = parseAmountFlag("interest", f.interest); err != nil {
		return p, err
	}
	if p.depositDate, err = parseDateFlag("deposit-date", f.depositDate, e.cfg.Columns.DayFirst); err != nil {
		return p, err
	}
	if p.maturityDate, err = parseDateFlag("maturity-date", f.maturityDate, e.cfg.Columns.DayFirst); err != nil {
		return p, err
	}
	p.term = f.term
	if p.term == 0 {
		p.term = e.cfg.Maturity.TermMonths
	}
	return p, nil
}

func (f *depositFlags) outPath(e *env) string {
	if f.out != "" {
		return f.out
	}
	return e.cfg.Export.FileName
}

// parseAmountFlag returns zero for a blank value.
func parseAmountFlag(name, v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, nil
	}
	d, ok := normalize.ParseAmount(v)
	if !ok {
		return decimal.Zero, fmt.Errorf("--%s %q is not an amount", name, v)
	}
	return d, nil
}

// parseDateFlag returns the zero time for a blank value; validation decides
// whether it was required.
func parseDateFlag(name, v string, dayFirst bool) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	t, ok := normalize.ParseDate(v, dayFirst)
	if !ok {
		return time.Time{}, fmt.Errorf("--%s %q is not a date", name, v)
	}
	return t, nil
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var customer, initial, bank, fdr string
	var df depositFlags

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Append a new deposit and write the updated table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			p, err := df.parse(e)
			if err != nil {
				return err
			}
			res, err := e.load(args[0])
			if err != nil {
				return err
			}

			out, rec, err := ledger.Add(res.Table, ledger.AddParams{
				Customer:       customer,
				Initial:        initial,
				Bank:           bank,
				DepositAmount:  p.depositAmount,
				MaturityAmount: p.maturityAmount,
				DepositDate:    p.depositDate,
				Interest:       p.interest,
				FDRNumber:      fdr,
				MaturityDate:   p.maturityDate,
				TermMonths:     p.term,
			})
			if err != nil {
				return err
			}

			path := df.outPath(e)
			if err := e.save(path, out, df.format); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Added %s deposit for %s at %s, maturing %s\n",
				money(rec.DepositAmount), rec.Customer, rec.Bank, rec.MaturityDate.Format(model.DateFormat))
			fmt.Fprintf(e.out, "Wrote %d records to %s\n", out.Len(), path)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&customer, "customer", "", "customer name")
	fs.StringVar(&initial, "initial", "", "customer initial")
	fs.StringVar(&bank, "bank", "", "bank name")
	fs.StringVar(&fdr, "fdr", "", "FDR number")
	df.register(fs)

	return cmd
}

func newRenewCommand(opts *globalOptions) *cobra.Command {
	var newFDR string
	var df depositFlags

	cmd := &cobra.Command{
		Use:   "renew <file> <fdr-number>",
		Short: "Replace a matured deposit with its renewal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			p, err := df.parse(e)
			if err != nil {
				return err
			}
			res, err := e.load(args[0])
			if err != nil {
				return err
			}

			out, rec, err := ledger.Renew(res.Table, args[1], ledger.RenewParams{
				DepositAmount:  p.depositAmount,
				MaturityAmount: p.maturityAmount,
				DepositDate:    p.depositDate,
				Interest:       p.interest,
				FDRNumber:      newFDR,
				MaturityDate:   p.maturityDate,
				TermMonths:     p.term,
			})
			if err != nil {
				return err
			}

			path := df.outPath(e)
			if err := e.save(path, out, df.format); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Renewed %s as %s for %s, maturing %s\n",
				strings.TrimSpace(args[1]), rec.FDRNumber, rec.Customer, rec.MaturityDate.Format(model.DateFormat))
			fmt.Fprintf(e.out, "Wrote %d records to %s\n", out.Len(), path)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&newFDR, "new-fdr", "", "FDR number of the renewed deposit")
	df.register(fs)

	return cmd
}
