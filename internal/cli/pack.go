package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/archive"
	sdaformat "github.com/v-hunt/trunity-importer/internal/formats/sda"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

// runPack builds the handler for the pack command.
func runPack(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		grade := flags.String("grade", "", "Pack only the tests of this grade")
		out := flags.String("o", "", "Output package (default: <archive>-qti.zip)")
		noColor := flags.Bool("no-color", false, "Disable coloured output")
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
		src := flags.Arg(0)
		dst := *out
		if dst == "" {
			dst = strings.TrimSuffix(src, filepath.Ext(src)) + "-qti.zip"
		}

		arc, err := archive.Open(src)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		defer arc.Close()

		f, err := os.Create(dst)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		ws, err := sdaformat.Pack(context.Background(), arc, strings.TrimSpace(*grade), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
			fmt.Fprintf(stderr, "Pack failed: %v\n", err)
			return ExitError
		}

		fmt.Fprintf(stdout, "Wrote %s\n", dst)
		warnings.Report(stdout, ws, *noColor)
		return ExitOK
	}
}
