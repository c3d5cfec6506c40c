package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/archive"
	"github.com/v-hunt/trunity-importer/internal/config"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/sda"
	"github.com/v-hunt/trunity-importer/internal/storage"
	"github.com/v-hunt/trunity-importer/internal/warnings"

	_ "github.com/v-hunt/trunity-importer/internal/formats/qti"
	_ "github.com/v-hunt/trunity-importer/internal/formats/sda"
)

// runImport builds the handler for the qti and sda commands.
func runImport(format string) func(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
		return func(args []string, stdout, stderr io.Writer) int {
			if wantsHelp(args) {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}

			flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
			flags.SetOutput(stderr)
			configPath := flags.String("config", "", "Path to a YAML config file")
			bookID := flags.Int("book", 0, "Trunity book (site) id")
			topicID := flags.Int("topic", 0, "Topic id receiving every pool")
			noColor := flags.Bool("no-color", false, "Disable coloured output")
			var grade *string
			if format == "sda" {
				grade = flags.String("grade", "", "Import only the tests of this grade")
			}
			if err := flags.Parse(args); err != nil {
				if err == flag.ErrHelp {
					printCommandUsage(cmd, stdout)
					return ExitOK
				}
				fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
				printCommandUsage(cmd, stderr)
				return ExitUsage
			}
			if flags.NArg() != 1 {
				fmt.Fprintf(stderr, "expected one archive, got %d arguments\n", flags.NArg())
				printCommandUsage(cmd, stderr)
				return ExitUsage
			}
			if *bookID <= 0 {
				fmt.Fprintln(stderr, "-book is required")
				printCommandUsage(cmd, stderr)
				return ExitUsage
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(stderr, "Config error: %v\n", err)
				return ExitError
			}
			arc, err := archive.Open(flags.Arg(0))
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return ExitError
			}
			defer arc.Close()

			ctx := context.Background()
			p := newPrompter(stdout)
			client, err := login(ctx, cfg.Trunity, p)
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return ExitError
			}
			env := formats.Env{Remote: client, Uploader: client, Log: log.New(stderr, "", log.LstdFlags)}
			if cfg.Blob.Driver == "fs" {
				bs, err := storage.NewFSStore(cfg.Blob.BasePath, cfg.Blob.PublicURL)
				if err != nil {
					fmt.Fprintf(stderr, "blob store: %v\n", err)
					return ExitError
				}
				env.Uploader = bs
			}

			opts := formats.Options{BookID: *bookID, TopicID: *topicID}
			if grade != nil {
				opts.Grade = strings.TrimSpace(*grade)
			}
			if format == "sda" && opts.TopicID == 0 {
				opts.Topics = p.topicFor
			}

			adapter, _ := formats.Lookup(format)
			res, err := adapter.Import(ctx, arc, env, opts)
			if err != nil {
				var ge *sda.GradeError
				if errors.As(err, &ge) {
					fmt.Fprintln(stderr, ge.Error())
					return ExitUsage
				}
				fmt.Fprintf(stderr, "Import failed: %v\n", err)
				return ExitError
			}

			for _, pool := range res.Pools {
				fmt.Fprintf(stdout, "Pool %q: id=%d topic=%d questions=%d\n", pool.Title, pool.ContentID, pool.TopicID, pool.Questions)
			}
			warnings.Report(stdout, res.Warnings, *noColor || cfg.NoColor)
			return ExitOK
		}
	}
}
