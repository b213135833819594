package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fd-manager/fdm/internal/sheet"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	var out, format string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the normalized table as xlsx or csv",
		Long: "Write the normalized table as xlsx or csv. Supported formats: " +
			strings.Join(sheet.DefaultRegistry().WriterFormats(), ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			res, err := e.load(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = e.cfg.Export.FileName
			}
			if err := e.save(out, res.Table, format); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Wrote %d records to %s\n", res.Table.Len(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (config export.file_name when blank)")
	cmd.Flags().StringVar(&format, "format", "", "output format (taken from --out's extension when blank)")

	return cmd
}
