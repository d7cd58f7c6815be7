package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/atomicfile"
	"github.com/aidanlsb/skycat/internal/partition"
	"github.com/aidanlsb/skycat/internal/ui"
	"github.com/aidanlsb/skycat/internal/wtml"
)

func (a *app) newPartitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Sort imagesets into hand-tagged review groups",
		Long: `A partition file lists one sky imageset per line as "url  tag  description".
Tags are assigned by hand; update adds new imagesets under ` + partition.Unassigned + ` and
emit writes a catalog document for one tag.`,
	}
	cmd.AddCommand(a.newPartitionUpdateCmd(), a.newPartitionEmitCmd())
	return cmd
}

func (a *app) newPartitionUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <file>",
		Short: "Add new sky imagesets to a partition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			fsys, name := fileFS(args[0])
			report, err := partition.Update(st, fsys, name, a.log)
			if err != nil {
				return a.fail(err, "")
			}
			report.Path = args[0]

			if a.jsonOutput {
				a.outputSuccess(report, nil, a.meta(report.Total))
				return nil
			}
			tbl := ui.NewTable("tag", "entries").Numeric(1)
			for _, t := range report.Tags {
				tbl.AddRow(t.Tag, strconv.Itoa(t.Count))
			}
			a.printf("%s", tbl.String())
			a.println(ui.Successf("Updated %s: %s, %d new", ui.Key(args[0]),
				ui.Count(report.Total, "entry", "entries"), report.Added))
			return nil
		},
	}
}

func (a *app) newPartitionEmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "emit <file> <tag> <out>",
		Short:   "Write a catalog document for one tag",
		Example: `  skycat partition emit partitions.txt nebulae review/nebulae.wtml`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			fsys, name := fileFS(args[0])
			f, err := partition.Read(fsys, name)
			if err != nil {
				return a.fail(err, "")
			}

			tag := args[1]
			doc, report, err := partition.Emit(st, f, tag, a.log)
			if err != nil {
				return a.fail(err, "")
			}
			if report.URLs == 0 {
				return a.fail(withCode(ErrInvalidInput, fmt.Errorf("no entries are tagged %q", tag)), "")
			}

			data, err := wtml.Marshal(doc)
			if err != nil {
				return a.fail(err, "")
			}
			outFS, outName := fileFS(args[2])
			if err := atomicfile.WriteFile(outFS, outName, data); err != nil {
				return a.fail(err, "")
			}

			var warnings []Warning
			for _, u := range report.Missing {
				warnings = append(warnings, Warning{Code: "NOT_IN_STORE", Message: "tagged imageset is not in the store", Ref: u})
			}
			if a.jsonOutput {
				a.outputSuccess(report, warnings, a.meta(report.Places+report.Imagesets))
				return nil
			}
			for _, u := range report.Missing {
				a.println(ui.Warningf("%s is not in the store", ui.Key(u)))
			}
			a.println(ui.Successf("Wrote %s: %s, %s", ui.Key(args[2]),
				ui.Count(report.Places, "place", "places"),
				ui.Count(report.Imagesets, "imageset", "imagesets")))
			return nil
		},
	}
}
