package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fd-manager/fdm/internal/query"
	"github.com/fd-manager/fdm/internal/report"
)

func newInspectCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a spreadsheet maps onto deposit records",
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
			printDiagnostics(e.out, res.Diagnostics)
			return nil
		},
	}
}

func newQueryCommand(opts *globalOptions) *cobra.Command {
	var exact bool

	cmd := &cobra.Command{
		Use:   "query <file> <selector>",
		Short: "List deposits by customer initial or name, or ALL for the bank summary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			res, err := e.load(args[0])
			if err != nil {
				return err
			}

			mode := query.MatchSubstring
			if exact {
				mode = query.MatchExact
			}
			q := query.FilterWith(res.Table, args[1], mode)
			switch {
			case q.All:
				return printSummary(e.out, report.SummarizeByBank(q.Table))
			case q.Empty():
				fmt.Fprintf(e.out, "No deposits match %q\n", q.Selector)
				return nil
			}
			return printRecords(e.out, q.Table, e.now(), e.cfg.SoonHorizon())
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "match whole customer names only")

	return cmd
}

func newSummaryCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <file>",
		Short: "Sum deposits per customer within each bank",
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
			return printSummary(e.out, report.SummarizeByBank(res.Table))
		},
	}
}
