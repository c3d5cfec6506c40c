// Package sda imports Science Dimensions Assessments exports.
package sda

import (
	"context"
	"errors"
	"fmt"

	"github.com/v-hunt/trunity-importer/internal/archive"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/media"
	"github.com/v-hunt/trunity-importer/internal/sda"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

const Format = "sda"

type Importer struct{}

func init() { formats.Register(Format, Importer{}) }

// OpenExport locates and parses the XML_Export document of arc.
func OpenExport(arc *archive.Archive) (*sda.Export, error) {
	name, err := arc.FindExport()
	if err != nil {
		return nil, err
	}
	f, err := arc.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sda.Parse(f)
}

func (Importer) Import(ctx context.Context, arc *archive.Archive, env formats.Env, opts formats.Options) (formats.Result, error) {
	exp, err := OpenExport(arc)
	if err != nil {
		return formats.Result{}, err
	}

	keep, err := gradeFilter(exp, opts.Grade)
	if err != nil {
		return formats.Result{}, err
	}

	w := &warnings.Collector{}
	acc := &formats.Accumulator{
		Resolver: media.NewResolver(arc, env.Uploader, media.SDARules),
		Warnings: w,
	}
	for q := range exp.Questions(w, keep) {
		if err := acc.Add(ctx, q); err != nil {
			return formats.Result{}, err
		}
	}
	env.Logger().Printf("sda %s: %d pools to upload", arc.Name(), acc.Groups.Len())

	res := formats.Result{Format: Format}
	for _, grp := range acc.Groups.All() {
		title, err := poolTitle(exp, grp, w)
		if err != nil {
			return formats.Result{}, err
		}

		topicID := opts.TopicID
		if topicID == 0 && opts.Topics != nil {
			if topicID, err = opts.Topics(ctx, title); err != nil {
				return formats.Result{}, err
			}
		}
		pool, err := formats.UploadPool(ctx, env, opts.BookID, title, topicID, grp)
		if err != nil {
			return formats.Result{}, err
		}
		res.Pools = append(res.Pools, pool)
	}
	res.Warnings = w.Items()
	return res, nil
}

// gradeFilter validates grade and returns a test id filter for it; nil
// means every test.
func gradeFilter(exp *sda.Export, grade string) (func(testID string) bool, error) {
	if grade == "" {
		return nil, nil
	}
	if err := exp.Grades.Validate(grade); err != nil {
		return nil, err
	}
	in := make(map[string]bool)
	for _, id := range exp.Grades.TestIDs(grade) {
		in[id] = true
	}
	return func(testID string) bool { return in[testID] }, nil
}

func poolTitle(exp *sda.Export, grp *formats.Group, w *warnings.Collector) (string, error) {
	title, err := exp.QuestionnaireTitle(grp.TestID)
	if errors.Is(err, sda.ErrUnknownTest) {
		w.Add(grp.Questions[0].ItemID, fmt.Sprintf("test %s is not declared; using placeholder title", grp.TestID))
	} else if err != nil {
		return "", err
	}
	if title == "" {
		title = formats.UntitledPool
	}
	return title, nil
}
