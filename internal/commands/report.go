package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/report"
)

func newPivotCommand(opts *globalOptions) *cobra.Command {
	var rows, cols, values []string
	var agg string

	cmd := &cobra.Command{
		Use:   "pivot <file>",
		Short: "Aggregate amounts over chosen row and column fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			res, err := e.load(args[0])
			if err != nil {
				return err
			}
			pt, err := report.Pivot(res.Table, report.PivotSpec{
				Rows:   rows,
				Cols:   cols,
				Values: values,
				Agg:    report.Agg(agg),
			})
			if errors.Is(err, report.ErrNoRecords) {
				fmt.Fprintln(e.out, "No records to pivot")
				return nil
			}
			if err != nil {
				return err
			}
			return printPivot(e.out, pt)
		},
	}

	cmd.Flags().StringSliceVar(&rows, "rows", nil, "row fields, e.g. Bank,Customer")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "column fields")
	cmd.Flags().StringSliceVar(&values, "values", []string{model.ColDepositAmount}, "amount columns to aggregate")
	cmd.Flags().StringVar(&agg, "agg", string(report.AggSum), "sum, mean or count")

	return cmd
}

func newSharesCommand(opts *globalOptions) *cobra.Command {
	var by, value string

	cmd := &cobra.Command{
		Use:   "shares <file>",
		Short: "Show each group's share of an amount column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			res, err := e.load(args[0])
			if err != nil {
				return err
			}
			slices, err := report.Shares(res.Table, by, value)
			if errors.Is(err, report.ErrNoRecords) {
				fmt.Fprintln(e.out, "No records to chart")
				return nil
			}
			if err != nil {
				return err
			}
			return printShares(e.out, by, value, slices)
		},
	}

	cmd.Flags().StringVar(&by, "by", model.ColBank, "field to group by")
	cmd.Flags().StringVar(&value, "value", model.ColDepositAmount, "amount column")

	return cmd
}
