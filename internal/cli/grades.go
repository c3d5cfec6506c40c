package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/v-hunt/trunity-importer/internal/archive"
	sdaformat "github.com/v-hunt/trunity-importer/internal/formats/sda"
)

// runGrades builds the handler for the grades command.
func runGrades(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		if err := flags.Parse(args); err != nil {
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() != 1 {
			fmt.Fprintf(stderr, "expected one archive, got %d arguments\n", flags.NArg())
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		arc, err := archive.Open(flags.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		defer arc.Close()
		exp, err := sdaformat.OpenExport(arc)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		grades := exp.Grades.Available()
		if len(grades) == 0 {
			fmt.Fprintln(stdout, "No grades found.")
			return ExitOK
		}
		for _, g := range grades {
			fmt.Fprintf(stdout, "%s\t%d tests\n", g, len(exp.Grades.TestIDs(g)))
		}
		return ExitOK
	}
}
